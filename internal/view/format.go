package view

import (
	"time"

	"github.com/jinga80/medical-law/internal/models"

	"github.com/dustin/go-humanize"
)

var relMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "방금 전", DivBy: 1},
	{D: time.Hour, Format: "%d분 %s", DivBy: time.Minute},
}

// FormatTime 一分钟内显示“방금 전”，一小时内显示相对分钟，当天显示时刻，更早显示日期。
func FormatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		if diff < 0 {
			t = now
		}
		return humanize.CustomRelTime(t, now, "전", "후", relMagnitudes)
	case diff < 24*time.Hour:
		return t.Local().Format("15:04")
	default:
		return t.Local().Format("2006-01-02")
	}
}

var priorityClasses = map[models.Priority]string{
	models.PriorityLow:    "text-muted",
	models.PriorityNormal: "",
	models.PriorityHigh:   "text-warning",
	models.PriorityUrgent: "text-danger fw-bold",
}

func PriorityClass(p models.Priority) string { return priorityClasses[p] }

var typeIcons = map[models.NotificationType]string{
	models.JobRequestSubmitted:     "mdi mdi-file-document-plus",
	models.JobRequestAccepted:      "mdi mdi-check-circle",
	models.CandidateRecommended:    "mdi mdi-account-plus",
	models.DocumentReviewCompleted: "mdi mdi-file-check",
	models.InterviewScheduled:      "mdi mdi-calendar-clock",
	models.InterviewCompleted:      "mdi mdi-calendar-check",
	models.FinalDecisionMade:       "mdi mdi-flag-checkered",
	models.WorkflowStepCompleted:   "mdi mdi-progress-clock",
	models.SystemNotification:      "mdi mdi-bell-ring",
	models.Reminder:                "mdi mdi-alarm",
}

// TypeIcon 未知类型回退到通用铃铛图标。
func TypeIcon(t models.NotificationType) string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return "mdi mdi-bell"
}

var roleNames = map[models.Role]string{
	models.RoleAdmin:     "관리자",
	models.RoleModerator: "운영자",
	models.RoleMember:    "멤버",
	models.RoleGuest:     "게스트",
}

func RoleName(r models.Role) string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}

func systemClass(k models.EntryKind) string {
	switch k {
	case models.EntryJoin:
		return "text-success"
	case models.EntryLeave:
		return "text-muted"
	case models.EntryError:
		return "text-danger"
	default:
		return "text-info"
	}
}
