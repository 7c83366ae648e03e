// Package runner drives one smoke run: authenticate, probe, report.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/auth"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/config"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/notify"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/probe"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/utils"
	"github.com/google/uuid"
)

type State string

const (
	StateInit          State = "INIT"
	StateAuthenticated State = "AUTHENTICATED"
	StateProbed        State = "PROBED"
	StateFailed        State = "FAILED"
	StateReported      State = "REPORTED"
	StateDone          State = "DONE"
)

type Authenticator interface {
	NewSession(ctx context.Context, credential model.Credential) (model.Session, error)
}

type Prober interface {
	Run(ctx context.Context, session model.Session, req model.UploadRequest) model.Report
}

type Reporter interface {
	Notify(ctx context.Context, report model.Report) error
}

type Runner struct {
	authenticator Authenticator
	prober        Prober
	reporter      Reporter
	credential    model.Credential
}

// Outcome is what a run leaves behind. NotifyErr is informational only.
type Outcome struct {
	Report    model.Report
	States    []State
	NotifyErr error
}

func (o Outcome) Final() State {
	if len(o.States) == 0 {
		return ""
	}
	return o.States[len(o.States)-1]
}

func New(authenticator Authenticator, prober Prober, reporter Reporter, credential model.Credential) (*Runner, error) {
	if authenticator == nil || prober == nil || reporter == nil {
		return nil, utils.WrapIfNotNil(errors.New("authenticator, prober and reporter are required"))
	}
	return &Runner{
		authenticator: authenticator,
		prober:        prober,
		reporter:      reporter,
		credential:    credential,
	}, nil
}

// NewFromConfig wires the HTTP authenticator, probe and SMTP notifier from cfg.
// Mail delivery is skipped (and logged) when no recipients are configured.
func NewFromConfig(cfg *config.Config) (*Runner, error) {
	authClient, err := auth.NewClient(cfg.TokenURL, nil)
	if err != nil {
		return nil, err
	}

	p, err := probe.New(cfg.ProbeOptions()...)
	if err != nil {
		return nil, err
	}

	var mailer notify.Mailer
	if cfg.MailEnabled() {
		smtpMailer, err := notify.NewSMTPMailer(cfg.SMTPConfig())
		if err != nil {
			return nil, err
		}
		mailer = smtpMailer
	}

	return New(authClient, p, notify.New(mailer, cfg.NotifySettings()), cfg.Credential())
}

// Run executes one suite. The report is always handed to the reporter, on both
// success and failure. An authentication failure is returned as an error after
// reporting; a failing probe is not an error, it is a failing Report.
func (r *Runner) Run(ctx context.Context, req model.UploadRequest) (Outcome, error) {
	outcome := Outcome{}
	runID := uuid.NewString()
	log := logging.NewLogger(logging.WithRunID(ctx, runID))

	transition := func(state State) {
		outcome.States = append(outcome.States, state)
		log.WithField("state", state).Infof("run state %s", state)
	}

	transition(StateInit)
	started := time.Now()

	session, err := r.authenticator.NewSession(ctx, r.credential)
	if err != nil {
		transition(StateFailed)
		authErr := model.AsProbeError(err, model.ErrorKindAuthentication)
		outcome.Report = model.FailureReport(authErr)
		outcome.Report.RunID = runID
		outcome.Report.StartedAt = started
		outcome.Report.FinishedAt = time.Now()

		outcome.NotifyErr = r.reporter.Notify(logging.WithRunID(ctx, runID), outcome.Report)
		transition(StateReported)
		transition(StateDone)
		return outcome, authErr
	}
	if session.RunID == "" {
		session.RunID = runID
	}
	log = logging.NewLogger(logging.WithRunID(ctx, session.RunID))
	transition(StateAuthenticated)

	outcome.Report = r.prober.Run(ctx, session, req)
	transition(StateProbed)

	outcome.NotifyErr = r.reporter.Notify(logging.WithRunID(ctx, session.RunID), outcome.Report)
	transition(StateReported)

	if outcome.Report.Success {
		log.Infof("✅ run passed")
	} else {
		log.Errorf("❌ run failed: %v", outcome.Report.Err)
	}
	transition(StateDone)
	return outcome, nil
}
