// Package view 把 store 状态渲染成 HTML 片段。渲染函数都是状态的纯函数，
// 不含业务逻辑；用户内容一律经 html/template 转义。
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/jinga80/medical-law/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// 片段 id，对应页面上唯一的写入目标。
const (
	BadgeID            = "notification-badge"
	NotificationListID = "notification-list"
	StatsID            = "notification-stats"
	ToastsID           = "toast-container"
	WorkflowID         = "workflow-progress"
	StatusID           = "connection-status"
)

func RoomMessagesID(roomID string) string { return "chat-messages-" + roomID }

func RoomParticipantsID(roomID string) string { return "chat-participants-" + roomID }

func RoomTypingID(roomID string) string { return "typing-indicator-" + roomID }

func RoomStatusID(roomID string) string { return "chat-status-" + roomID }

var funcs = template.FuncMap{
	"ago":      FormatTime,
	"priority": PriorityClass,
	"icon":     TypeIcon,
	"role":     RoleName,
	"system":   systemClass,
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"isMsg":    func(k models.EntryKind) bool { return k == models.EntryMessage },
}

var templates = template.Must(template.New("view").Funcs(funcs).Parse(`
{{define "badge"}}<span class="badge rounded-pill bg-danger notification-badge"{{if eq .Count 0}} style="display: none;"{{end}}>{{.Label}}</span>{{end}}

{{define "notifications"}}{{$now := .Now}}{{range .Items}}<li class="notification-item{{if not .Read}} unread{{end}}" data-notification-id="{{.ID}}">
<a class="dropdown-item d-flex align-items-center py-2 {{priority .Priority}}" href="{{if .ActionURL}}{{.ActionURL}}{{else}}#{{end}}">
<div class="flex-shrink-0"><i class="{{icon .Type}} me-2"></i></div>
<div class="flex-grow-1"><div class="fw-bold small">{{.Title}}</div><div class="small text-muted">{{.Message}}</div><div class="small text-muted">{{ago .Timestamp $now}}</div></div>
{{if .ActionRequired}}<span class="badge bg-warning ms-2">액션 필요</span>{{end}}
</a></li>
{{else}}<li class="dropdown-item text-muted small">새 알림이 없습니다.</li>
{{end}}{{end}}

{{define "stats"}}{{if .OK}}<div class="notification-stats small text-muted">전체 {{comma .Stats.Total}} · 읽지 않음 {{comma .Stats.Unread}} · 긴급 {{comma .Stats.Urgent}} · 읽음률 {{printf "%.1f" .Stats.ReadRate}}%</div>{{end}}{{end}}

{{define "toasts"}}{{$now := .Now}}{{range .Items}}{{if .Urgent}}<div class="toast border-danger show" data-toast-id="{{.ID}}">
<div class="toast-header bg-danger text-white"><i class="mdi mdi-alert-circle me-2"></i><strong class="me-auto">긴급: {{.Title}}</strong><small>{{ago .Timestamp $now}}</small></div>
<div class="toast-body">{{.Message}}<br><small class="text-danger"><i class="mdi mdi-alert"></i> 즉시 확인이 필요합니다.</small></div>
</div>
{{else}}<div class="toast show" data-toast-id="{{.ID}}">
<div class="toast-header {{priority .Priority}}"><i class="{{icon .Type}} me-2"></i><strong class="me-auto">{{.Title}}</strong><small>{{ago .Timestamp $now}}</small></div>
<div class="toast-body">{{.Message}}{{if .Action}}<br><small class="text-warning"><i class="mdi mdi-alert"></i> 액션이 필요합니다.</small>{{end}}</div>
</div>
{{end}}{{end}}{{end}}

{{define "messages"}}{{$now := .Now}}{{$self := .Self}}{{range .Items}}{{if isMsg .Kind}}<div class="chat-message" data-message-id="{{.ID}}">
<div class="chat-message-content {{if and $self (eq .SenderID $self)}}own-message{{else}}other-message{{end}}">
<div class="message-header"><span class="sender-name">{{.SenderName}}</span><span class="message-time">{{ago .Timestamp $now}}</span></div>
<div class="message-body">{{.Content}}</div>
{{if .IsEdited}}<small class="text-muted">수정됨</small>{{end}}
</div></div>
{{else}}<div class="chat-system-message"><div class="system-message {{system .Kind}}"><small>{{.Content}}</small></div></div>
{{end}}{{end}}{{end}}

{{define "participants"}}{{range .}}<div class="chat-participant" data-user-id="{{.UserID}}"><div class="participant-info"><span class="participant-name">{{.Name}}</span><span class="participant-role badge bg-secondary">{{role .Role}}</span></div></div>
{{end}}{{end}}

{{define "typing"}}{{if .OK}}<small class="text-muted">{{.Name}}님이 입력 중...</small>{{end}}{{end}}

{{define "workflows"}}{{range .}}<div class="workflow-item" data-workflow-id="{{.ID}}">
<div class="d-flex justify-content-between small"><span>{{.Name}}</span><span class="text-muted">{{.StepName}}</span></div>
<div class="progress"><div class="progress-bar" role="progressbar" style="width: {{.Progress}}%" aria-valuenow="{{.Progress}}" aria-valuemin="0" aria-valuemax="100">{{.Progress}}%</div></div>
</div>
{{end}}{{end}}

{{define "status"}}<div class="connection-status"><span class="status-dot {{.Class}}"></span><span class="status-text">{{.Text}}</span></div>{{end}}
`))

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render fragment")
		return ""
	}
	return buf.String()
}

// Badge 未读数为 0 时隐藏。
func Badge(unread int) string {
	label := strconv.Itoa(unread)
	if unread > 99 {
		label = "99+"
	}
	return render("badge", struct {
		Count int
		Label string
	}{unread, label})
}

func NotificationList(items []models.Notification, now time.Time) string {
	return render("notifications", struct {
		Items []models.Notification
		Now   time.Time
	}{items, now})
}

func NotificationStats(st models.NotificationStats, ok bool) string {
	return render("stats", struct {
		Stats models.NotificationStats
		OK    bool
	}{st, ok})
}

func Toasts(items []models.Toast, now time.Time) string {
	return render("toasts", struct {
		Items []models.Toast
		Now   time.Time
	}{items, now})
}

// RoomMessages 渲染消息流；self 非空时自己发的消息带 own-message 样式。
func RoomMessages(msgs []models.ChatMessage, self models.ID, now time.Time) string {
	return render("messages", struct {
		Items []models.ChatMessage
		Self  models.ID
		Now   time.Time
	}{msgs, self, now})
}

func Participants(ps []models.Participant) string {
	return render("participants", ps)
}

func Typing(name string, ok bool) string {
	return render("typing", struct {
		Name string
		OK   bool
	}{name, ok})
}

func Workflows(items []models.Workflow) string {
	return render("workflows", items)
}

var statusText = map[string]string{
	"open":       "연결됨",
	"connecting": "연결 중...",
	"closing":    "연결 해제 중...",
	"closed":     "연결 해제됨",
}

// ConnectionStatus 渲染某条通道的连接指示。
func ConnectionStatus(channel, state string) string {
	class := "disconnected"
	if state == "open" {
		class = "connected"
	} else if state == "connecting" {
		class = "connecting"
	}
	text, ok := statusText[state]
	if !ok {
		text = state
	}
	return render("status", struct {
		Class string
		Text  string
	}{class, fmt.Sprintf("%s: %s", channel, text)})
}
