// Package mailer renders account emails and delivers them through a
// configurable Sender.
package mailer

import (
	"context"
	"fmt"

	"github.com/utafrali/identity/internal/domain"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Template domain.EmailTemplate
	To       string
	Subject  string
	HTML     string
}

// Sender delivers a rendered message through one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Mailer renders an email job and hands it to a Sender. It makes exactly one
// delivery attempt per call.
type Mailer struct {
	renderer *Renderer
	sender   Sender
}

func New(renderer *Renderer, sender Sender) *Mailer {
	return &Mailer{renderer: renderer, sender: sender}
}

// Deliver renders job and sends it.
func (m *Mailer) Deliver(ctx context.Context, job domain.EmailJob) error {
	msg, err := m.renderer.Render(job)
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email via %s: %w", job.Template, m.sender.Name(), err)
	}
	return nil
}
