// Package natsbus feeds kitchen coordinator events back into the order
// lifecycle. Messages that keep failing after the retry budget are
// republished on a dead-letter subject and dropped; a violated state guard is
// never retried because replaying the same command cannot change the verdict.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"ordering/internal/adapters/out/kitchen"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/nats-io/nats.go"
)

const (
	deadLetterPrefix = "deadletter."
	maxAttempts      = 3
	retryDelay       = 100 * time.Millisecond
)

// OrderCommands is the slice of the lifecycle service the subscriber drives.
type OrderCommands interface {
	StartProcessing(ctx context.Context, orderID kernel.UUID) error
	FinishItem(ctx context.Context, orderID, itemID kernel.UUID) error
}

// KitchenSubscriber consumes the kitchen coordinator's start-processing and
// item-finished events and turns them into commands on the owning strategy.
type KitchenSubscriber struct {
	commands OrderCommands
	conn     *nats.Conn
	publish  func(subject string, data []byte) error
	logger   *slog.Logger
	subs     []*nats.Subscription
}

func NewKitchenSubscriber(conn *nats.Conn, commands OrderCommands, logger *slog.Logger) (*KitchenSubscriber, error) {
	if conn == nil {
		return nil, errs.NewValueIsRequiredError("conn")
	}
	if commands == nil {
		return nil, errs.NewValueIsRequiredError("commands")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &KitchenSubscriber{
		commands: commands,
		conn:     conn,
		publish:  conn.Publish,
		logger:   logger.With("component", "kitchen_subscriber"),
	}, nil
}

// Start subscribes to both kitchen subjects. Handlers run on the NATS
// delivery goroutine; per-order ordering is the owning strategy's job, not
// the subscriber's.
func (s *KitchenSubscriber) Start(ctx context.Context) error {
	startProcessing, err := s.conn.Subscribe(kitchen.SubjectStartProcessing, func(msg *nats.Msg) {
		s.process(ctx, msg.Subject, msg.Data, s.applyStartProcessing)
	})
	if err != nil {
		return errs.NewDownstreamCallFailureError(kitchen.SubjectStartProcessing, "", err)
	}
	s.subs = append(s.subs, startProcessing)

	itemFinished, err := s.conn.Subscribe(kitchen.SubjectItemFinished, func(msg *nats.Msg) {
		s.process(ctx, msg.Subject, msg.Data, s.applyItemFinished)
	})
	if err != nil {
		return errs.NewDownstreamCallFailureError(kitchen.SubjectItemFinished, "", err)
	}
	s.subs = append(s.subs, itemFinished)

	s.logger.InfoContext(ctx, "Kitchen subscriber started",
		"subjects", []string{kitchen.SubjectStartProcessing, kitchen.SubjectItemFinished})
	return nil
}

// Stop unsubscribes from all kitchen subjects.
func (s *KitchenSubscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	s.subs = nil
	s.logger.Info("Kitchen subscriber stopped")
}

// process applies the message with a bounded retry budget. Exhausted or
// unretryable messages go to the dead-letter subject for operator review.
func (s *KitchenSubscriber) process(ctx context.Context, subject string, data []byte, apply func(context.Context, []byte) error) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = apply(ctx, data); err == nil {
			return
		}
		if !retryable(err) {
			break
		}
		if attempt < maxAttempts {
			time.Sleep(retryDelay)
		}
	}

	s.deadLetter(ctx, subject, data, err)
}

func (s *KitchenSubscriber) applyStartProcessing(ctx context.Context, data []byte) error {
	var msg kitchen.OrderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("order message", err)
	}
	orderID, err := kernel.UUIDFromString(msg.OrderID)
	if err != nil {
		return err
	}

	return s.commands.StartProcessing(ctx, orderID)
}

func (s *KitchenSubscriber) applyItemFinished(ctx context.Context, data []byte) error {
	var msg kitchen.ItemMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("item message", err)
	}
	orderID, err := kernel.UUIDFromString(msg.OrderID)
	if err != nil {
		return err
	}
	itemID, err := kernel.UUIDFromString(msg.ItemID)
	if err != nil {
		return err
	}

	return s.commands.FinishItem(ctx, orderID, itemID)
}

func (s *KitchenSubscriber) deadLetter(ctx context.Context, subject string, data []byte, cause error) {
	target := deadLetterPrefix + subject
	if err := s.publish(target, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to dead-letter kitchen event",
			"subject", subject, "target", target, "cause", cause, "error", err)
		return
	}

	s.logger.ErrorContext(ctx, "Kitchen event dead-lettered",
		"subject", subject, "target", target, "error", cause)
}

// retryable reports whether another delivery attempt can possibly succeed.
// State guard violations, unknown identifiers and malformed payloads are
// final; transient store and publish failures are worth another try.
func retryable(err error) bool {
	switch {
	case errors.Is(err, errs.ErrInvalidStateTransition),
		errors.Is(err, errs.ErrItemNotFound),
		errors.Is(err, errs.ErrRoutingNotFound),
		errors.Is(err, errs.ErrObjectNotFound),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired):
		return false
	default:
		return true
	}
}
