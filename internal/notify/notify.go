// Package notify decides how an email job reaches the mailer: inline, where
// the caller waits for the delivery attempt, or deferred through a
// Dispatcher, where the caller only learns whether the hand-off succeeded.
package notify

import (
	"context"

	"github.com/utafrali/identity/internal/domain"
)

// Delivery performs one delivery attempt for a job. *mailer.Mailer satisfies it.
type Delivery interface {
	Deliver(ctx context.Context, job domain.EmailJob) error
}

// Dispatcher hands a job off for later delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.EmailJob) error
}

// Notifier exposes the two delivery modes used by the auth flows.
type Notifier struct {
	delivery   Delivery
	dispatcher Dispatcher
}

func New(delivery Delivery, dispatcher Dispatcher) *Notifier {
	return &Notifier{delivery: delivery, dispatcher: dispatcher}
}

// SendDeferred hands job to the dispatcher and returns without waiting for
// delivery. The returned error reports only a failed hand-off.
func (n *Notifier) SendDeferred(ctx context.Context, job domain.EmailJob) error {
	return n.dispatcher.Dispatch(ctx, job)
}

// SendBlocking delivers job inline and returns the delivery error.
func (n *Notifier) SendBlocking(ctx context.Context, job domain.EmailJob) error {
	return n.delivery.Deliver(ctx, job)
}
