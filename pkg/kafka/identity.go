package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	shopctx "github.com/SirPen9uin/shop-api/pkg/context"
	"github.com/SirPen9uin/shop-api/pkg/metrics"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

// Deduper remembers applied event ids so a redelivered event is skipped.
type Deduper interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// markTimeout bounds MarkProcessed, which runs detached from the delivery
// context once the event is applied.
const markTimeout = 5 * time.Second

// IdentityHandler applies identity service events to the local users table.
type IdentityHandler struct {
	users  repositories.UserRepo
	dedupe Deduper
	logger ectologger.Logger
}

// NewIdentityHandler builds the handler. dedupe may be nil, in which case
// every delivery is applied; upserts and deletes are idempotent either way.
func NewIdentityHandler(users repositories.UserRepo, dedupe Deduper, logger ectologger.Logger) *IdentityHandler {
	return &IdentityHandler{
		users:  users,
		dedupe: dedupe,
		logger: logger,
	}
}

func (h *IdentityHandler) Handle(ctx context.Context, msg *IncomingMessage) error {
	evt, err := msg.ParseIdentityEvent()
	if err != nil {
		metrics.RecordIdentityEvent("unknown", "invalid")
		return fmt.Errorf("%w: %v", ErrSkip, err)
	}

	ctx = shopctx.SetSource(ctx, "kafka")
	ctx = shopctx.SetRequestID(ctx, evt.EventID)
	ctx = shopctx.SetUserID(ctx, fmt.Sprint(evt.UserID))
	ctx, span := tracing.StartSpan(ctx, "IdentityHandler.Handle",
		attribute.String("identity.event_type", string(evt.Type)),
		attribute.Int64("identity.user_id", evt.UserID),
	)
	defer span.End()

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":   evt.EventID,
		"event_type": string(evt.Type),
		"user_id":    evt.UserID,
	})

	if h.dedupe != nil {
		seen, err := h.dedupe.Processed(ctx, evt.EventID)
		if err != nil {
			metrics.RecordIdentityEvent(string(evt.Type), "failed")
			return fmt.Errorf("failed to look up event %s: %w", evt.EventID, err)
		}
		if seen {
			tracing.SetAttributes(ctx, attribute.Bool("identity.duplicate", true))
			log.Debug("Identity event already processed")
			metrics.RecordIdentityEvent(string(evt.Type), "duplicate")
			return nil
		}
	}

	if err := h.apply(ctx, evt); err != nil {
		if repositories.IsValidation(err) {
			metrics.RecordIdentityEvent(string(evt.Type), "invalid")
			return fmt.Errorf("%w: %v", ErrSkip, err)
		}
		metrics.RecordIdentityEvent(string(evt.Type), "failed")
		return err
	}

	if h.dedupe != nil {
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
		defer cancel()
		// a lost mark means the next delivery applies the event again
		if err := h.dedupe.MarkProcessed(markCtx, evt.EventID); err != nil {
			log.WithError(err).Warn("Failed to mark identity event as processed")
		}
	}

	metrics.RecordIdentityEvent(string(evt.Type), "applied")
	log.Info("Applied identity event")
	return nil
}

func (h *IdentityHandler) apply(ctx context.Context, evt *IdentityEvent) error {
	switch evt.Type {
	case UserDeleted:
		res, err := h.users.Delete(ctx, evt.UserID)
		if repositories.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		h.logger.WithContext(ctx).WithFields(map[string]any{
			"user_id": evt.UserID,
			"rows":    res.Total(),
		}).Info("Deleted user and owned rows")
		return nil
	default:
		return h.users.Upsert(ctx, &models.User{
			ID:       evt.UserID,
			Username: evt.Username,
			Email:    evt.Email,
		})
	}
}
