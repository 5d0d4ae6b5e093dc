package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/workflow"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers status-change alerts to a school's subscribed staff
// without blocking the workflow engine.
type WorkerPool struct {
	size    int
	jobs    chan workflow.StatusChange
	store   store.Store
	webpush *webpush.Options
	sender  Sender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan workflow.StatusChange, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// Notify queues a committed status change for delivery. Implements
// workflow.Notifier.
func (wp *WorkerPool) Notify(change workflow.StatusChange) {
	select {
	case wp.jobs <- change:
	default:
		// Alerts are best-effort; dropping beats blocking the engine.
		wp.log.Warn("notification queue full, dropping alert",
			zap.Int64("equipment_id", change.EquipmentID))
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case change := <-wp.jobs:
			wp.deliver(ctx, change)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// deliver fetches the school's subscriptions and pushes the alert to each.
func (wp *WorkerPool) deliver(ctx context.Context, change workflow.StatusChange) {
	subs, err := wp.store.ListSubscriptionsBySchool(ctx, change.SchoolID)
	if err != nil {
		wp.log.Error("fetching subscriptions failed",
			zap.Int64("school_id", change.SchoolID), zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	label := fmt.Sprintf("#%d", change.EquipmentID)
	if eq, err := wp.store.GetEquipment(ctx, change.SchoolID, change.EquipmentID); err != nil {
		wp.log.Warn("fetching equipment for alert failed",
			zap.Int64("equipment_id", change.EquipmentID), zap.Error(err))
	} else if eq.Name != "" {
		label = eq.Name
	}

	message := alertMessage(label, change.NewStatus)
	for _, sub := range subs {
		wp.send(ctx, sub, []byte(message))
	}
}

func alertMessage(label string, status model.Status) string {
	switch status {
	case model.StatusOverdue:
		return fmt.Sprintf("Equipment %s is overdue for return", label)
	case model.StatusDamaged:
		return fmt.Sprintf("Equipment %s was reported damaged", label)
	case model.StatusLost:
		return fmt.Sprintf("Equipment %s was reported lost", label)
	default:
		return fmt.Sprintf("Equipment %s is now %s", label, status)
	}
}

// send pushes a single notification and prunes expired subscriptions.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Error("sending notification failed",
			zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("pruning expired subscription", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("deleting expired subscription failed",
				zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
