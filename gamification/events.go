/*
events.go - Outbound notification events

PURPOSE:
  The core produces NotificationEvents for the UI/notification layer to
  consume. Delivery is fire-and-forget; the core only guarantees that
  events are emitted, not how they are rendered or transported.

SEE ALSO:
  - facade.go: The only producer
*/
package gamification

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type NotificationKind string

const (
	NotifyAchievementUnlocked NotificationKind = "achievementUnlocked"
	NotifyLevelUp             NotificationKind = "levelUp"
	NotifyXPAwarded           NotificationKind = "xpAwarded"
)

// NotificationEvent is the outbound contract for collaborators.
type NotificationEvent struct {
	UserID  string
	Kind    NotificationKind
	Payload map[string]any
	At      time.Time
}

// Notifier consumes notification events. Implementations must not block;
// the facade calls Notify synchronously on the request path.
type Notifier interface {
	Notify(ctx context.Context, ev NotificationEvent)
}

// =============================================================================
// IMPLEMENTATIONS
// =============================================================================

// LogNotifier writes events to the structured log. The default sink when
// no downstream consumer is wired.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, ev NotificationEvent) {
	n.Log.Info().
		Str("user_id", ev.UserID).
		Str("kind", string(ev.Kind)).
		Interface("payload", ev.Payload).
		Msg("notification")
}

// CollectingNotifier records every event in order. For tests.
type CollectingNotifier struct {
	Events []NotificationEvent
}

func (n *CollectingNotifier) Notify(_ context.Context, ev NotificationEvent) {
	n.Events = append(n.Events, ev)
}

// Kinds returns the event kinds in emission order. Test helper.
func (n *CollectingNotifier) Kinds() []NotificationKind {
	out := make([]NotificationKind, len(n.Events))
	for i, ev := range n.Events {
		out[i] = ev.Kind
	}
	return out
}
