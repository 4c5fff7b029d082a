// Package notify delivers operator alerts for committed engine events over
// one or more channels (Telegram, Discord). Alerts can be filtered by event
// kind so operators receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier implements domain.EventSink by formatting committed events into
// short operator messages and dispatching them to all registered senders.
// Delivery happens on a background goroutine so slow webhooks never hold up
// the engine.
type Notifier struct {
	senders []Sender
	kinds   map[domain.EventKind]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. Only
// events whose kind appears in kinds are forwarded; an empty kinds slice
// allows every kind.
func NewNotifier(senders []Sender, kinds []domain.EventKind, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.EventKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return &Notifier{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Emit implements domain.EventSink.
func (n *Notifier) Emit(ctx context.Context, evt domain.Event) {
	if len(n.senders) == 0 {
		return
	}
	if len(n.kinds) > 0 && !n.kinds[evt.Kind] {
		return
	}

	title, message := formatEvent(evt)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.dispatch(sendCtx, title, message); err != nil {
			n.logger.Warn("notification delivery incomplete", slog.Any("error", err))
		}
	}()
}

// NotifyAll sends an arbitrary message to all senders, bypassing the kind
// filter. Used for lifecycle announcements (startup, shutdown).
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected; a single sender failure does not prevent
// delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatEvent renders a committed event as an operator-facing title and body.
func formatEvent(evt domain.Event) (string, string) {
	switch evt.Kind {
	case domain.EventBondCreated:
		return "Bond created",
			fmt.Sprintf("bond %s\nbeneficiary %s at %d bps, price %d",
				evt.Bond, evt.Beneficiary, evt.BasisPoints, evt.PurchasePrice)
	case domain.EventPurchasePriceChanged:
		return "Purchase price changed",
			fmt.Sprintf("bond %s\nnew price %d", evt.Bond, evt.PurchasePrice)
	case domain.EventPurchased:
		return "Purchase",
			fmt.Sprintf("bond %s\n%s bought %d units for %d (fee %d)",
				evt.Bond, evt.Actor, evt.Units, evt.Paid, evt.Fee)
	case domain.EventSold:
		return "Sale",
			fmt.Sprintf("bond %s\n%s sold %d units for %d net (fee %d)",
				evt.Bond, evt.Actor, evt.Units, evt.Value, evt.Fee)
	case domain.EventWithdrawn:
		return "Withdrawal",
			fmt.Sprintf("%s withdrew %d (network fee %d)",
				evt.Actor, evt.Value, evt.NetworkFee)
	case domain.EventNetworkFeeChanged:
		return "Network fee changed",
			fmt.Sprintf("new rate %d bps (by %s)", evt.BasisPoints, evt.Actor)
	case domain.EventExperimentStopped:
		return "Engine stopped",
			fmt.Sprintf("stopped by %s; purchases are disabled", evt.Actor)
	default:
		return string(evt.Kind), fmt.Sprintf("event %s seq %d", evt.ID, evt.Seq)
	}
}

// Compile-time interface check.
var _ domain.EventSink = (*Notifier)(nil)
