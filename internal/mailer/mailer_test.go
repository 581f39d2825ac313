package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/identity/internal/domain"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestMailer_Deliver(t *testing.T) {
	sender := &recordingSender{}
	m := New(newTestRenderer(t), sender)

	err := m.Deliver(context.Background(), domain.EmailJob{
		Template: domain.TemplateResetPassword,
		To:       "a@x.com",
		Token:    "abc",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Identity - Password recovery for user a@x.com", sender.sent[0].Subject)
}

func TestMailer_DeliverOnceOnFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	m := New(newTestRenderer(t), sender)

	err := m.Deliver(context.Background(), domain.EmailJob{Template: domain.TemplateTest, To: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording")
	assert.Len(t, sender.sent, 1)
}

func TestMailer_RenderErrorSkipsSend(t *testing.T) {
	sender := &recordingSender{}
	m := New(newTestRenderer(t), sender)

	err := m.Deliver(context.Background(), domain.EmailJob{Template: "unknown", To: "a@x.com"})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}
