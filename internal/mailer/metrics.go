package mailer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of email delivery attempts by template and result.",
		},
		[]string{"sender", "template", "result"},
	)

	emailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_send_duration_seconds",
			Help:    "Time spent delivering one email.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sender"},
	)
)

type instrumentedSender struct {
	next Sender
}

// Instrument wraps s so every Send is counted and timed.
func Instrument(s Sender) Sender {
	return &instrumentedSender{next: s}
}

func (s *instrumentedSender) Name() string { return s.next.Name() }

func (s *instrumentedSender) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := s.next.Send(ctx, msg)
	emailSendDuration.WithLabelValues(s.next.Name()).Observe(time.Since(start).Seconds())

	result := "success"
	if err != nil {
		result = "failure"
	}
	emailsSent.WithLabelValues(s.next.Name(), string(msg.Template), result).Inc()
	return err
}
