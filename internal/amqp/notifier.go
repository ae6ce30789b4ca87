package amqp

import (
	"context"

	"bizdash/internal/log"
	"bizdash/internal/optimistic"
)

// Publisher sends mutation events. *Client implements it.
type Publisher interface {
	PublishMutation(ctx context.Context, evt *MutationEvent) error
}

// EventRecorder counts published and consumed events.
type EventRecorder interface {
	EventHandled(direction string, err error)
}

// Notifier publishes every settled mutation so other sessions can refetch.
// Publishing is best effort: failures are logged and counted, never returned.
type Notifier struct {
	pub      Publisher
	session  string
	recorder EventRecorder
	logger   *log.Logger
}

var _ optimistic.Notifier = (*Notifier)(nil)

func NewNotifier(pub Publisher, session string, recorder EventRecorder, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &Notifier{pub: pub, session: session, recorder: recorder, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (n *Notifier) MutationSettled(ctx context.Context, r optimistic.Result) {
	if r.Outcome == optimistic.Skipped {
		return
	}
	evt := NewMutationEvent(r.Scope.Resource.Name, r.Scope.Key(), r.ID, string(r.Outcome), n.session)
	if r.Err != nil {
		evt.Error = r.Err.Error()
	}

	err := n.pub.PublishMutation(ctx, evt)
	if n.recorder != nil {
		n.recorder.EventHandled("published", err)
	}
	if err != nil {
		n.logger.WarnContext(ctx, "Failed to publish mutation event",
			log.FieldScope, evt.Scope,
			log.FieldEntityID, evt.EntityID,
			log.FieldError, err.Error())
	}
}
