package service

import (
	"context"
	"fmt"
	"time"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// BroadcastResult tallies a broadcast batch
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// NotificationService delivers best-effort messages to customers.
// Delivery failures are tallied, never propagated into the financial flow.
type NotificationService interface {
	NotifyCustomer(ctx context.Context, telegramID, text string) bool
	Broadcast(ctx context.Context, title, content string) (*BroadcastResult, error)
}

type notificationServiceImpl struct {
	customerRepo port.CustomerRepository
	messenger    port.Messenger
	logger       Logger

	// pause between broadcast sends to stay under messenger rate limits
	pacing time.Duration
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	customerRepo port.CustomerRepository,
	messenger port.Messenger,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		customerRepo: customerRepo,
		messenger:    messenger,
		logger:       logger,
		pacing:       50 * time.Millisecond,
	}
}

// NotifyCustomer sends a single message, best effort. Returns whether the
// delivery succeeded; never panics or aborts the caller's flow.
func (s *notificationServiceImpl) NotifyCustomer(ctx context.Context, telegramID, text string) bool {
	if err := s.messenger.SendMessage(ctx, telegramID, text); err != nil {
		s.logger.Error("Failed to deliver message", "error", err, "telegram_id", telegramID)
		return false
	}
	return true
}

// Broadcast sends a titled message to every active customer with a telegram
// identity. Individual failures are counted and never abort the batch.
func (s *notificationServiceImpl) Broadcast(ctx context.Context, title, content string) (*BroadcastResult, error) {
	targets, err := s.customerRepo.BroadcastTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load broadcast targets: %w", err)
	}

	text := fmt.Sprintf("📢 %s\n\n%s", title, content)

	result := &BroadcastResult{}
	for _, telegramID := range targets {
		if s.NotifyCustomer(ctx, telegramID, text) {
			result.Sent++
		} else {
			result.Failed++
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Broadcast interrupted",
				"sent", result.Sent, "failed", result.Failed, "total", len(targets))
			return result, ctx.Err()
		case <-time.After(s.pacing):
		}
	}

	s.logger.Info("Broadcast finished",
		"sent", result.Sent, "failed", result.Failed, "total", len(targets))
	return result, nil
}
