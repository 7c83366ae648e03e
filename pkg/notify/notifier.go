// Package notify emails the probe report. Delivery is best effort: failures are
// logged and never change the verdict.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
)

const (
	DefaultSubjectTitle = "Prism Test Report"
	subjectTimeLayout   = "2006-01-02 15:04:05"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Settings struct {
	From string
	// To always receives the report.
	To []string
	// FailureExtra is appended to To only for failing reports.
	FailureExtra []string
	SubjectTitle string
}

type Notifier struct {
	mailer   Mailer
	settings Settings
	now      func() time.Time
}

func New(mailer Mailer, settings Settings) *Notifier {
	if strings.TrimSpace(settings.SubjectTitle) == "" {
		settings.SubjectTitle = DefaultSubjectTitle
	}
	settings.To = append([]string(nil), settings.To...)
	settings.FailureExtra = append([]string(nil), settings.FailureExtra...)

	return &Notifier{
		mailer:   mailer,
		settings: settings,
		now:      time.Now,
	}
}

// Recipients returns the base list, plus the failure extras when the report failed.
func (n *Notifier) Recipients(report model.Report) []string {
	recipients := make([]string, 0, len(n.settings.To)+len(n.settings.FailureExtra))
	recipients = append(recipients, n.settings.To...)
	if !report.Success {
		recipients = append(recipients, n.settings.FailureExtra...)
	}
	return recipients
}

func (n *Notifier) Subject(report model.Report, at time.Time) string {
	if report.Success {
		return fmt.Sprintf("✅ %s - Success - %s", n.settings.SubjectTitle, at.Format(subjectTimeLayout))
	}
	return fmt.Sprintf("❌ %s - Failed - %s", n.settings.SubjectTitle, at.Format(subjectTimeLayout))
}

func (n *Notifier) Message(report model.Report) Message {
	return Message{
		From:    n.settings.From,
		To:      n.Recipients(report),
		Subject: n.Subject(report, n.now()),
		Body:    report.Body,
	}
}

// Notify sends the report. It returns the delivery error for callers that want
// to record it, but the error is already logged and must not affect the verdict.
func (n *Notifier) Notify(ctx context.Context, report model.Report) error {
	log := logging.NewLogger(ctx)

	msg := n.Message(report)
	if n.mailer == nil || len(msg.To) == 0 {
		log.Warnf("no mail recipients configured; report not emailed")
		return nil
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		notifyErr := model.NewProbeError(model.ErrorKindNotification, err)
		log.Errorf("❌ Failed to send email report: %v", notifyErr)
		return notifyErr
	}

	log.Infof("📧 Email report sent to %d recipient(s).", len(msg.To))
	return nil
}
