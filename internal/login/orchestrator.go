// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package login drives a login attempt from received credentials to an
// issued session.
package login

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
	"github.com/UniversoExpandido2018/UE-1/internal/auth"
	"github.com/UniversoExpandido2018/UE-1/internal/message"
	"github.com/UniversoExpandido2018/UE-1/internal/session"
	"github.com/UniversoExpandido2018/UE-1/pkg/errutil"
)

const (
	failureTitle   = "Login Error"
	failureMessage = "Login failed. Please try again later."
)

// Validator checks credentials and account policy.
type Validator interface {
	Validate(ctx context.Context, req auth.Request) (*account.Account, error)
}

// Issuer mints a session for an approved login.
type Issuer interface {
	Issue(ctx context.Context, acc *account.Account, client session.Client) error
}

// Recorder receives login metrics.
type Recorder interface {
	RecordLogin(outcome string, elapsed time.Duration)
	RecordVerdict(verdict string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string, time.Duration) {}
func (nopRecorder) RecordVerdict(string)              {}

// Request is a decoded login request.
type Request struct {
	Username string
	Password string
	Version  string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRequiredVersion sets the client version every login must present.
// Empty disables the check.
func WithRequiredVersion(version string) Option {
	return func(o *Orchestrator) {
		o.requiredVersion = version
	}
}

// WithLimiter throttles attempts per client IP.
func WithLimiter(l *auth.AttemptLimiter) Option {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

// Orchestrator runs the login state machine. It is the only component
// that tells clients why a login failed.
type Orchestrator struct {
	validator       Validator
	authority       session.Authority
	issuer          Issuer
	requiredVersion string
	limiter         *auth.AttemptLimiter
	metrics         Recorder
	logger          *slog.Logger
	now             func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(validator Validator, authority session.Authority, issuer Issuer, opts ...Option) (*Orchestrator, error) {
	if validator == nil {
		return nil, oops.Errorf("credential validator is required")
	}
	if authority == nil {
		return nil, oops.Errorf("session authority is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("session issuer is required")
	}

	o := &Orchestrator{
		validator: validator,
		authority: authority,
		issuer:    issuer,
		metrics:   nopRecorder{},
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Login starts a login attempt for client. ctx must live exactly as long
// as the client connection: once it is cancelled, a pending approval is
// dropped without contacting the client.
//
// Login never waits for the session authority. The returned Attempt
// reports progress; its Done channel closes when the attempt ends.
func (o *Orchestrator) Login(ctx context.Context, client session.Client, req Request) *Attempt {
	a := newAttempt(req.Username, o.now())
	log := o.logger.With(
		"attempt_id", a.ID.String(),
		"username", req.Username,
		"ip", client.IPAddress(),
	)

	if !o.limiter.Allow(client.IPAddress()) {
		o.reject(ctx, a, client, log, auth.RateLimited())
		return a
	}

	if err := auth.CheckVersion(o.requiredVersion, req.Version); err != nil {
		rej, _ := auth.AsRejection(err)
		o.reject(ctx, a, client, log, rej)
		return a
	}
	a.advance(StateVersionChecked)

	acc, err := o.validator.Validate(ctx, auth.Request{
		Username:    req.Username,
		Password:    req.Password,
		Interactive: true,
	})
	if err != nil {
		if rej, ok := auth.AsRejection(err); ok {
			o.reject(ctx, a, client, log, rej)
		} else {
			o.fail(ctx, a, client, log, err)
		}
		return a
	}
	a.advance(StateAccountValidated)

	log = log.With("account_id", acc.ID())
	a.advance(StateAwaitingApproval)
	o.authority.ApproveNewSession(ctx, client.IPAddress(), acc.ID(), func(v session.Verdict) {
		o.resume(ctx, a, acc, client, log, v)
	})
	return a
}

// resume is the approval continuation.
func (o *Orchestrator) resume(ctx context.Context, a *Attempt, acc *account.Account, client session.Client, log *slog.Logger, v session.Verdict) {
	o.metrics.RecordVerdict(verdictLabel(v))

	if v.TransientFailure {
		log.Error("unexpected failure in session approval",
			"log_message", v.LogMessage,
			"allowed", v.Allowed,
		)
	}

	if ctx.Err() != nil {
		log.Debug("client gone before approval, dropping login")
		o.end(a, StateAbandoned)
		return
	}

	if !v.Allowed {
		o.reject(ctx, a, client, log, auth.SessionDenied(v.Title, v.Message))
		return
	}

	if err := o.issuer.Issue(ctx, acc, client); err != nil {
		if ctx.Err() != nil {
			o.end(a, StateAbandoned)
			return
		}
		o.fail(ctx, a, client, log, err)
		return
	}

	log.Info("login succeeded", "event", "login_succeeded")
	o.end(a, StateSessionIssued)
}

func (o *Orchestrator) reject(ctx context.Context, a *Attempt, client session.Client, log *slog.Logger, rej *auth.Rejection) {
	a.rejection.Store(rej)
	log.Info("login rejected",
		"event", "login_rejected",
		"code", rej.Code,
		"state", a.State().String(),
	)
	o.send(ctx, client, log, message.Error{Title: rej.Title, Body: rej.Message})
	o.end(a, StateRejected)
}

func (o *Orchestrator) fail(ctx context.Context, a *Attempt, client session.Client, log *slog.Logger, err error) {
	errutil.LogErrorContext(ctx, log, "login failed", err)
	o.send(ctx, client, log, message.Error{Title: failureTitle, Body: failureMessage})
	o.end(a, StateFailed)
}

func (o *Orchestrator) send(ctx context.Context, client session.Client, log *slog.Logger, msg message.Message) {
	if ctx.Err() != nil {
		return
	}
	if err := client.Send(msg); err != nil {
		log.Debug("login reply not delivered", "kind", string(msg.Kind()), "error", err)
	}
}

func (o *Orchestrator) end(a *Attempt, s State) {
	if a.finish(s) {
		o.metrics.RecordLogin(s.outcome(), o.now().Sub(a.Started))
	}
}

func verdictLabel(v session.Verdict) string {
	switch {
	case v.TransientFailure && v.Allowed:
		return "transient_allowed"
	case v.TransientFailure:
		return "transient_denied"
	case v.Allowed:
		return "allowed"
	default:
		return "denied"
	}
}
