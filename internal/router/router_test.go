package router

import (
	"errors"
	"testing"

	"github.com/jinga80/medical-law/internal/metrics"
	"github.com/jinga80/medical-law/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type recordingNotifications struct {
	unread []int
	notes  []NotificationReceived
	stats  []StatsReceived
	other  int
}

func (r *recordingNotifications) OnConnectionEstablished(ConnectionEstablished) {
	r.other++
}

func (r *recordingNotifications) OnUnreadCount(e UnreadCount) {
	r.unread = append(r.unread, e.Count)
}

func (r *recordingNotifications) OnNotification(e NotificationReceived) {
	r.notes = append(r.notes, e)
}

func (r *recordingNotifications) OnNotificationStats(e StatsReceived) {
	r.stats = append(r.stats, e)
}

func (r *recordingNotifications) OnPong(Pong) { r.other++ }

func TestNotificationRouter_Dispatch(t *testing.T) {
	h := &recordingNotifications{}
	r := NewNotificationRouter(h, zerolog.Nop())

	frames := []string{
		`{"type":"connection_established","message":"hi","user_id":7}`,
		`{"type":"unread_count","count":3}`,
		`{"type":"notification","id":12,"title":"T","message":"M","notification_type":"interview_scheduled","priority":"high","action_required":true,"timestamp":"2024-05-01T10:00:00.123456+00:00"}`,
		`{"type":"urgent_notification","id":"n2","title":"U","message":"now"}`,
		`{"type":"notification_stats","total":10,"unread":4,"urgent":1,"read_rate":60}`,
		`{"type":"pong"}`,
	}
	for _, f := range frames {
		if !r.Dispatch([]byte(f)) {
			t.Errorf("Dispatch(%s) = false, want true", f)
		}
	}

	if len(h.unread) != 1 || h.unread[0] != 3 {
		t.Errorf("unread = %v, want [3]", h.unread)
	}
	if len(h.notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(h.notes))
	}
	n := h.notes[0].Notification
	if n.ID != "12" || n.Type != models.InterviewScheduled || n.Priority != models.PriorityHigh || !n.ActionRequired {
		t.Errorf("notification = %+v", n)
	}
	if n.Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
	if !h.notes[1].Urgent || h.notes[1].Notification.Priority != models.PriorityUrgent {
		t.Errorf("urgent notification = %+v", h.notes[1])
	}
	if len(h.stats) != 1 || h.stats[0].Stats.Unread != 4 {
		t.Errorf("stats = %+v", h.stats)
	}
	if h.other != 2 {
		t.Errorf("other = %d, want 2", h.other)
	}
}

func TestRouter_DropsUnroutable(t *testing.T) {
	h := &recordingNotifications{}
	r := NewNotificationRouter(h, zerolog.Nop())

	tests := []struct {
		name   string
		frame  string
		reason string
	}{
		{"malformed", `{"type":`, "malformed"},
		{"missing type", `{"count":3}`, "missing_type"},
		{"unknown type", `{"type":"workflow_status_update"}`, "unknown_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.EnvelopesDropped.WithLabelValues("notifications", tt.reason))
			if r.Dispatch([]byte(tt.frame)) {
				t.Errorf("Dispatch() = true, want false")
			}
			after := testutil.ToFloat64(metrics.EnvelopesDropped.WithLabelValues("notifications", tt.reason))
			if after-before != 1 {
				t.Errorf("dropped[%s] delta = %v, want 1", tt.reason, after-before)
			}
		})
	}
	if len(h.unread)+len(h.notes)+len(h.stats)+h.other != 0 {
		t.Error("handler invoked for dropped frame")
	}
}

func TestDecodeNotification_UnknownTypeError(t *testing.T) {
	_, err := DecodeNotification([]byte(`{"type":"bogus"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("DecodeNotification() error = %v, want ErrUnknownType", err)
	}
	_, err = DecodeNotification([]byte(`{}`))
	if !errors.Is(err, ErrMissingType) {
		t.Errorf("DecodeNotification() error = %v, want ErrMissingType", err)
	}
}

type panickyNotifications struct{ recordingNotifications }

func (panickyNotifications) OnPong(Pong) { panic("boom") }

func TestRouter_RecoversHandlerPanic(t *testing.T) {
	r := NewNotificationRouter(&panickyNotifications{}, zerolog.Nop())
	if r.Dispatch([]byte(`{"type":"pong"}`)) {
		t.Error("Dispatch() = true after handler panic, want false")
	}
}

type recordingWorkflow struct {
	updates   []WorkflowStatusUpdate
	tasks     []TaskAssignment
	deadlines []DeadlineReminder
}

func (r *recordingWorkflow) OnWorkflowConnected(WorkflowConnected) {}

func (r *recordingWorkflow) OnWorkflowStatus(e WorkflowStatusUpdate) {
	r.updates = append(r.updates, e)
}

func (r *recordingWorkflow) OnTaskAssignment(e TaskAssignment) {
	r.tasks = append(r.tasks, e)
}

func (r *recordingWorkflow) OnDeadlineReminder(e DeadlineReminder) {
	r.deadlines = append(r.deadlines, e)
}

func TestWorkflowRouter_Dispatch(t *testing.T) {
	h := &recordingWorkflow{}
	r := NewWorkflowRouter(h, zerolog.Nop())
	r.Dispatch([]byte(`{"type":"workflow_connection_established"}`))
	r.Dispatch([]byte(`{"type":"workflow_status_update","workflow_id":4,"progress":62.6,"status":"in_progress","step_name":"interview"}`))
	r.Dispatch([]byte(`{"type":"task_assignment","task_id":1,"task_name":"Review CV","due_date":"2024-06-01"}`))
	r.Dispatch([]byte(`{"type":"deadline_reminder","workflow_id":4,"workflow_name":"Nurse hiring","days_remaining":2}`))

	if len(h.updates) != 1 || h.updates[0].Workflow.Progress != 63 || h.updates[0].Workflow.ID != "4" {
		t.Errorf("updates = %+v", h.updates)
	}
	if len(h.tasks) != 1 || h.tasks[0].TaskName != "Review CV" || h.tasks[0].DueDate.IsZero() {
		t.Errorf("tasks = %+v", h.tasks)
	}
	if len(h.deadlines) != 1 || h.deadlines[0].DaysRemaining != 2 {
		t.Errorf("deadlines = %+v", h.deadlines)
	}
}

type recordingChat struct {
	events []string
	msgs   []models.ChatMessage
	ps     []models.Participant
}

func (r *recordingChat) OnChatConnected(ChatConnected) {
	r.events = append(r.events, "connected")
}

func (r *recordingChat) OnParticipants(e ParticipantsList) {
	r.events = append(r.events, "participants")
	r.ps = e.Participants
}

func (r *recordingChat) OnChatMessage(e ChatMessageReceived) {
	r.events = append(r.events, "message")
	r.msgs = append(r.msgs, e.Message)
}

func (r *recordingChat) OnUserTyping(UserTyping) {
	r.events = append(r.events, "typing")
}

func (r *recordingChat) OnUserJoined(UserJoined) {
	r.events = append(r.events, "joined")
}

func (r *recordingChat) OnUserLeft(UserLeft) {
	r.events = append(r.events, "left")
}

func (r *recordingChat) OnChatHistory(e ChatHistory) {
	r.events = append(r.events, "history")
	r.msgs = append(r.msgs, e.Messages...)
}

func (r *recordingChat) OnChatError(ChatError) {
	r.events = append(r.events, "error")
}

func TestChatRouter_Dispatch(t *testing.T) {
	h := &recordingChat{}
	r := NewChatRouter("room-9", h, zerolog.Nop())
	frames := []string{
		`{"type":"chat_connection_established","room_id":"room-9","user_id":1}`,
		`{"type":"participants_list","participants":[{"user_id":1,"user_name":"Kim","role":"admin"},{"user_id":2,"user_name":"Lee","role":"owner"}]}`,
		`{"type":"chat_message","id":5,"sender_id":2,"sender_name":"Lee","content":"<b>hi</b>","is_edited":true}`,
		`{"type":"user_typing","user_id":2,"user_name":"Lee","is_typing":true}`,
		`{"type":"user_joined","user_id":3,"user_name":"Park"}`,
		`{"type":"user_left","user_id":3,"user_name":"Park"}`,
		`{"type":"chat_history","messages":[{"id":1,"sender_id":1,"content":"a"},{"id":2,"sender_id":2,"content":"b"}]}`,
		`{"type":"error","message":"denied"}`,
	}
	for _, f := range frames {
		r.Dispatch([]byte(f))
	}
	want := []string{"connected", "participants", "message", "typing", "joined", "left", "history", "error"}
	if len(h.events) != len(want) {
		t.Fatalf("events = %v, want %v", h.events, want)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, h.events[i], want[i])
		}
	}
	if h.ps[1].Role != models.RoleMember {
		t.Errorf("unknown role mapped to %q, want member", h.ps[1].Role)
	}
	if len(h.msgs) != 3 || h.msgs[0].RoomID != "room-9" || !h.msgs[0].IsEdited {
		t.Errorf("msgs = %+v", h.msgs)
	}
}
