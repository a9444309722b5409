package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinga80/medical-law/internal/models"
)

var (
	ErrMissingType = errors.New("envelope has no type")
	ErrUnknownType = errors.New("unknown envelope type")
)

// Event 是解码后的一条入站信封。
type Event interface {
	Type() string
}

// envelope 包含所有入站类型可能用到的字段。
type envelope struct {
	Type             string        `json:"type"`
	ID               models.ID     `json:"id"`
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	NotificationType string        `json:"notification_type"`
	Priority         string        `json:"priority"`
	Timestamp        string        `json:"timestamp"`
	ActionURL        string        `json:"action_url"`
	ActionRequired   bool          `json:"action_required"`
	IsRead           bool          `json:"is_read"`
	Count            int           `json:"count"`
	Total            int           `json:"total"`
	Unread           int           `json:"unread"`
	Urgent           int           `json:"urgent"`
	ReadRate         float64       `json:"read_rate"`
	RoomID           models.ID     `json:"room_id"`
	UserID           models.ID     `json:"user_id"`
	UserName         string        `json:"user_name"`
	IsTyping         bool          `json:"is_typing"`
	SenderID         models.ID     `json:"sender_id"`
	SenderName       string        `json:"sender_name"`
	Content          string        `json:"content"`
	IsEdited         bool          `json:"is_edited"`
	Participants     []participant `json:"participants"`
	Messages         []chatMessage `json:"messages"`
	WorkflowID       models.ID     `json:"workflow_id"`
	WorkflowName     string        `json:"workflow_name"`
	Status           string        `json:"status"`
	StepName         string        `json:"step_name"`
	Progress         float64       `json:"progress"`
	TaskID           models.ID     `json:"task_id"`
	TaskName         string        `json:"task_name"`
	AssignedTo       models.ID     `json:"assigned_to"`
	DueDate          string        `json:"due_date"`
	Deadline         string        `json:"deadline"`
	DaysRemaining    int           `json:"days_remaining"`
}

type participant struct {
	UserID   models.ID `json:"user_id"`
	UserName string    `json:"user_name"`
	Role     string    `json:"role"`
}

type chatMessage struct {
	ID         models.ID `json:"id"`
	SenderID   models.ID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  string    `json:"timestamp"`
	IsEdited   bool      `json:"is_edited"`
}

func (m chatMessage) toModel(roomID string) models.ChatMessage {
	return models.ChatMessage{
		ID:         m.ID,
		RoomID:     roomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  models.ParseTime(m.Timestamp),
		IsEdited:   m.IsEdited,
		Kind:       models.EntryMessage,
	}
}

func decodeEnvelope(frame []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return env, ErrMissingType
	}
	return env, nil
}

// 通知通道

type NotificationEvent interface {
	Event
	notificationEvent()
}

type ConnectionEstablished struct {
	Message   string
	UserID    models.ID
	Timestamp time.Time
}

type UnreadCount struct{ Count int }

// NotificationReceived 同时对应 notification 和 urgent_notification。
type NotificationReceived struct {
	Notification models.Notification
	Urgent       bool
}

type StatsReceived struct{ Stats models.NotificationStats }

type Pong struct{ Timestamp time.Time }

func (ConnectionEstablished) Type() string { return "connection_established" }
func (UnreadCount) Type() string           { return "unread_count" }
func (StatsReceived) Type() string         { return "notification_stats" }
func (Pong) Type() string                  { return "pong" }

func (e NotificationReceived) Type() string {
	if e.Urgent {
		return "urgent_notification"
	}
	return "notification"
}

func (ConnectionEstablished) notificationEvent() {}
func (UnreadCount) notificationEvent()           {}
func (NotificationReceived) notificationEvent()  {}
func (StatsReceived) notificationEvent()         {}
func (Pong) notificationEvent()                  {}

func DecodeNotification(frame []byte) (NotificationEvent, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	ts := models.ParseTime(env.Timestamp)
	switch env.Type {
	case "connection_established":
		return ConnectionEstablished{Message: env.Message, UserID: env.UserID, Timestamp: ts}, nil
	case "unread_count":
		return UnreadCount{Count: env.Count}, nil
	case "notification", "urgent_notification":
		urgent := env.Type == "urgent_notification"
		n := models.Notification{
			ID:             env.ID,
			Title:          env.Title,
			Message:        env.Message,
			Type:           models.ParseNotificationType(env.NotificationType),
			Priority:       models.ParsePriority(env.Priority),
			Timestamp:      ts,
			ActionURL:      env.ActionURL,
			Read:           env.IsRead,
			ActionRequired: env.ActionRequired,
		}
		if urgent && env.Priority == "" {
			n.Priority = models.PriorityUrgent
		}
		return NotificationReceived{Notification: n, Urgent: urgent}, nil
	case "notification_stats":
		return StatsReceived{Stats: models.NotificationStats{
			Total: env.Total, Unread: env.Unread, Urgent: env.Urgent, ReadRate: env.ReadRate,
		}}, nil
	case "pong":
		return Pong{Timestamp: ts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// 流程通道

type WorkflowEvent interface {
	Event
	workflowEvent()
}

type WorkflowConnected struct{ Message string }

type WorkflowStatusUpdate struct {
	Workflow models.Workflow
	Message  string
}

type TaskAssignment struct {
	TaskID     models.ID
	TaskName   string
	AssignedTo models.ID
	DueDate    time.Time
	Message    string
	Timestamp  time.Time
}

type DeadlineReminder struct {
	WorkflowID    models.ID
	WorkflowName  string
	Deadline      time.Time
	DaysRemaining int
	Message       string
	Timestamp     time.Time
}

func (WorkflowConnected) Type() string    { return "workflow_connection_established" }
func (WorkflowStatusUpdate) Type() string { return "workflow_status_update" }
func (TaskAssignment) Type() string       { return "task_assignment" }
func (DeadlineReminder) Type() string     { return "deadline_reminder" }

func (WorkflowConnected) workflowEvent()    {}
func (WorkflowStatusUpdate) workflowEvent() {}
func (TaskAssignment) workflowEvent()       {}
func (DeadlineReminder) workflowEvent()     {}

func DecodeWorkflow(frame []byte) (WorkflowEvent, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	ts := models.ParseTime(env.Timestamp)
	switch env.Type {
	case "workflow_connection_established":
		return WorkflowConnected{Message: env.Message}, nil
	case "workflow_status_update":
		return WorkflowStatusUpdate{
			Workflow: models.Workflow{
				ID:        env.WorkflowID,
				Name:      env.WorkflowName,
				Status:    env.Status,
				StepName:  env.StepName,
				Progress:  int(math.Round(env.Progress)),
				UpdatedAt: ts,
			},
			Message: env.Message,
		}, nil
	case "task_assignment":
		return TaskAssignment{
			TaskID:     env.TaskID,
			TaskName:   env.TaskName,
			AssignedTo: env.AssignedTo,
			DueDate:    models.ParseTime(env.DueDate),
			Message:    env.Message,
			Timestamp:  ts,
		}, nil
	case "deadline_reminder":
		return DeadlineReminder{
			WorkflowID:    env.WorkflowID,
			WorkflowName:  env.WorkflowName,
			Deadline:      models.ParseTime(env.Deadline),
			DaysRemaining: env.DaysRemaining,
			Message:       env.Message,
			Timestamp:     ts,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// 聊天通道

type ChatEvent interface {
	Event
	chatEvent()
}

type ChatConnected struct {
	RoomID  models.ID
	UserID  models.ID
	Message string
}

type ParticipantsList struct{ Participants []models.Participant }

type ChatMessageReceived struct{ Message models.ChatMessage }

type UserTyping struct {
	UserID   models.ID
	UserName string
	IsTyping bool
}

type UserJoined struct {
	UserID   models.ID
	UserName string
}

type UserLeft struct {
	UserID   models.ID
	UserName string
}

type ChatHistory struct{ Messages []models.ChatMessage }

type ChatError struct{ Message string }

func (ChatConnected) Type() string       { return "chat_connection_established" }
func (ParticipantsList) Type() string    { return "participants_list" }
func (ChatMessageReceived) Type() string { return "chat_message" }
func (UserTyping) Type() string          { return "user_typing" }
func (UserJoined) Type() string          { return "user_joined" }
func (UserLeft) Type() string            { return "user_left" }
func (ChatHistory) Type() string         { return "chat_history" }
func (ChatError) Type() string           { return "error" }

func (ChatConnected) chatEvent()       {}
func (ParticipantsList) chatEvent()    {}
func (ChatMessageReceived) chatEvent() {}
func (UserTyping) chatEvent()          {}
func (UserJoined) chatEvent()          {}
func (UserLeft) chatEvent()            {}
func (ChatHistory) chatEvent()         {}
func (ChatError) chatEvent()           {}

func DecodeChat(roomID string, frame []byte) (ChatEvent, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case "chat_connection_established":
		return ChatConnected{RoomID: env.RoomID, UserID: env.UserID, Message: env.Message}, nil
	case "participants_list":
		ps := make([]models.Participant, 0, len(env.Participants))
		for _, p := range env.Participants {
			ps = append(ps, models.Participant{UserID: p.UserID, Name: p.UserName, Role: models.ParseRole(p.Role)})
		}
		return ParticipantsList{Participants: ps}, nil
	case "chat_message":
		msg := chatMessage{
			ID:         env.ID,
			SenderID:   env.SenderID,
			SenderName: env.SenderName,
			Content:    env.Content,
			Timestamp:  env.Timestamp,
			IsEdited:   env.IsEdited,
		}
		return ChatMessageReceived{Message: msg.toModel(roomID)}, nil
	case "user_typing":
		return UserTyping{UserID: env.UserID, UserName: env.UserName, IsTyping: env.IsTyping}, nil
	case "user_joined":
		return UserJoined{UserID: env.UserID, UserName: env.UserName}, nil
	case "user_left":
		return UserLeft{UserID: env.UserID, UserName: env.UserName}, nil
	case "chat_history":
		msgs := make([]models.ChatMessage, 0, len(env.Messages))
		for _, m := range env.Messages {
			msgs = append(msgs, m.toModel(roomID))
		}
		return ChatHistory{Messages: msgs}, nil
	case "error":
		return ChatError{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
