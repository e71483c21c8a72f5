package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"qyzmetBack/internal/models"
)

type MessageWriter interface {
	Insert(ctx context.Context, msg models.Message) (int, error)
}

type NotificationWriter interface {
	Insert(ctx context.Context, n models.Notification) (int, error)
	FCMToken(ctx context.Context, userID int) (string, error)
}

// PushSender delivers a push notification to one device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Broadcaster fans a payload out to a user's live websocket connections.
type Broadcaster interface {
	Broadcast(userID int, payload []byte)
}

// Notifier turns outbox events into user-visible notifications: a chat system
// message, a notification row, an FCM push, and a websocket broadcast. Only
// the durable writes can fail the delivery; push and websocket are best
// effort.
type Notifier struct {
	Messages      MessageWriter
	Notifications NotificationWriter
	Push          PushSender
	Sockets       Broadcaster
	Logger        *slog.Logger
}

func (n *Notifier) Deliver(ctx context.Context, ev models.OutboxEvent) error {
	if ev.RecipientID == 0 {
		return nil
	}
	title, body := describe(ev)

	if n.Messages != nil && body != "" {
		msg := models.Message{
			JobID:      ev.JobID,
			SenderID:   ev.ActorID,
			ReceiverID: ev.RecipientID,
			Text:       body,
			System:     true,
		}
		if _, err := n.Messages.Insert(ctx, msg); err != nil {
			return fmt.Errorf("insert system message: %w", err)
		}
	}

	notification := models.Notification{
		UserID: ev.RecipientID,
		Title:  title,
		Body:   body,
		Link:   fmt.Sprintf("/job/%d", ev.JobID),
	}
	if _, err := n.Notifications.Insert(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	n.push(ctx, ev, title, body)
	n.broadcast(ev, title, body)
	return nil
}

func (n *Notifier) push(ctx context.Context, ev models.OutboxEvent, title, body string) {
	if n.Push == nil {
		return
	}
	token, err := n.Notifications.FCMToken(ctx, ev.RecipientID)
	if err != nil {
		n.logger().Error("failed to look up device token", "user_id", ev.RecipientID, "err", err)
		return
	}
	if token == "" {
		return
	}
	data := map[string]string{
		"job_id": fmt.Sprint(ev.JobID),
		"kind":   ev.Kind,
	}
	if err := n.Push.Send(ctx, token, title, body, data); err != nil {
		n.logger().Error("push delivery failed", "user_id", ev.RecipientID, "err", err)
	}
}

func (n *Notifier) broadcast(ev models.OutboxEvent, title, body string) {
	if n.Sockets == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"kind":   ev.Kind,
		"job_id": ev.JobID,
		"title":  title,
		"body":   body,
	})
	if err != nil {
		return
	}
	n.Sockets.Broadcast(ev.RecipientID, payload)
}

// describe renders the recipient-facing text for an event kind.
func describe(ev models.OutboxEvent) (title, body string) {
	var details map[string]interface{}
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &details)
	}
	switch ev.Kind {
	case models.OutboxJobTransition:
		to, _ := details["to"].(string)
		return "Job updated", fmt.Sprintf("Job #%d is now %s", ev.JobID, to)
	case models.OutboxVisitSettled:
		outcome, _ := details["outcome"].(string)
		return "Visit completed", fmt.Sprintf("The first visit on job #%d was settled (%s)", ev.JobID, outcome)
	case models.OutboxMarkedDone:
		return "Work finished", fmt.Sprintf("The provider marked job #%d as done. Please confirm.", ev.JobID)
	case models.OutboxCompleted:
		return "Job completed", fmt.Sprintf("Job #%d was confirmed complete", ev.JobID)
	case models.OutboxPayoutReleased:
		return "Payout sent", fmt.Sprintf("Your payout for job #%d is on its way", ev.JobID)
	case models.OutboxInvoicePaid:
		return "Invoice paid", fmt.Sprintf("The invoice for job #%d has been paid", ev.JobID)
	case models.OutboxRescheduleEvent:
		action, _ := details["action"].(string)
		return "Schedule change", fmt.Sprintf("Reschedule update on job #%d: %s", ev.JobID, action)
	default:
		return "Update", fmt.Sprintf("Job #%d has an update", ev.JobID)
	}
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
