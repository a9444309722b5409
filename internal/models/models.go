package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ID 是服务端分配的不透明标识。服务端发整数，旧数据发字符串，两者解码结果相同。
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON 规范十进制整数写回数字，其余（含前导零）写成字符串。
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseUint(string(id), 10, 64); err == nil && strconv.FormatUint(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

type NotificationType string

const (
	JobRequestSubmitted     NotificationType = "job_request_submitted"
	JobRequestAccepted      NotificationType = "job_request_accepted"
	CandidateRecommended    NotificationType = "candidate_recommended"
	DocumentReviewCompleted NotificationType = "document_review_completed"
	InterviewScheduled      NotificationType = "interview_scheduled"
	InterviewCompleted      NotificationType = "interview_completed"
	FinalDecisionMade       NotificationType = "final_decision_made"
	WorkflowStepCompleted   NotificationType = "workflow_step_completed"
	SystemNotification      NotificationType = "system_notification"
	Reminder                NotificationType = "reminder"
)

// ParseNotificationType 把线上标签映射为已知类型，未知标签原样保留。
func ParseNotificationType(s string) NotificationType {
	if s == "system" {
		return SystemNotification
	}
	return NotificationType(s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

type Notification struct {
	ID             ID               `json:"id"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	Priority       Priority         `json:"priority"`
	Timestamp      time.Time        `json:"timestamp"`
	ActionURL      string           `json:"action_url,omitempty"`
	Read           bool             `json:"is_read"`
	ActionRequired bool             `json:"action_required"`
}

type NotificationStats struct {
	Total    int     `json:"total"`
	Unread   int     `json:"unread"`
	Urgent   int     `json:"urgent"`
	ReadRate float64 `json:"read_rate"`
}

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	RoleGuest     Role = "guest"
)

func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleGuest:
		return Role(s)
	default:
		return RoleMember
	}
}

type Participant struct {
	UserID ID     `json:"user_id"`
	Name   string `json:"user_name"`
	Role   Role   `json:"role"`
}

// EntryKind 区分房间消息流里的用户消息和系统提示。
type EntryKind int

const (
	EntryMessage EntryKind = iota
	EntryJoin
	EntryLeave
	EntryError
	EntryInfo
)

type ChatMessage struct {
	ID         ID        `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   ID        `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsEdited   bool      `json:"is_edited"`
	Kind       EntryKind `json:"kind"`
}

// Workflow 保存某个流程最近一次推送的状态。
type Workflow struct {
	ID        ID        `json:"workflow_id"`
	Name      string    `json:"workflow_name"`
	Status    string    `json:"status"`
	StepName  string    `json:"step_name"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Toast struct {
	ID        string
	Title     string
	Message   string
	Type      NotificationType
	Priority  Priority
	Timestamp time.Time
	Urgent    bool
	Action    bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime 接受服务端发出的各种 ISO-8601 格式。无时区的按 UTC 处理，空值或无法解析时返回零值。
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// ChannelKind 是逻辑双工通道的类型。
type ChannelKind string

const (
	ChannelNotifications ChannelKind = "notifications"
	ChannelWorkflow      ChannelKind = "workflow"
	ChannelChat          ChannelKind = "chat"
)
