// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Approval actions returned by the session API.
const (
	ActionAllow    = "ALLOW"
	ActionWarn     = "WARN"
	ActionReject   = "REJECT"
	ActionTempFail = "TEMPFAIL"
)

const (
	defaultRemoteTimeout = 5 * time.Second
	defaultRemoteBackoff = 100 * time.Millisecond
	maxRemoteBackoff     = 2 * time.Second
	maxResponseBytes     = 64 << 10

	unavailableTitle   = "Login Error"
	unavailableMessage = "The session service is unavailable. Please try again later."
)

// RemoteConfig configures a RemoteAuthority.
type RemoteConfig struct {
	// BaseURL is the session API root, e.g. http://sessions:8080.
	BaseURL string
	// Timeout bounds each HTTP request. Zero means five seconds.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// FailOpen allows logins when the API cannot be reached.
	FailOpen bool
	// Backoff is the initial retry delay. Zero means 100ms.
	Backoff time.Duration
}

// RemoteOption configures a RemoteAuthority.
type RemoteOption func(*RemoteAuthority)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteAuthority) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRemoteLogger sets the logger.
func WithRemoteLogger(logger *slog.Logger) RemoteOption {
	return func(r *RemoteAuthority) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RemoteAuthority asks the session API to approve logins.
type RemoteAuthority struct {
	base   *url.URL
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger

	inflight sync.WaitGroup
}

// NewRemoteAuthority creates a RemoteAuthority.
func NewRemoteAuthority(cfg RemoteConfig, opts ...RemoteOption) (*RemoteAuthority, error) {
	if cfg.BaseURL == "" {
		return nil, oops.Errorf("session api url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, oops.Code("SESSION_API_INVALID_URL").With("url", cfg.BaseURL).Wrap(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, oops.Code("SESSION_API_INVALID_URL").
			With("url", cfg.BaseURL).
			Errorf("unsupported scheme %q", base.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRemoteTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultRemoteBackoff
	}

	r := &RemoteAuthority{
		base:   base,
		cfg:    cfg,
		client: &http.Client{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type approvalResponse struct {
	Action  string `json:"action"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// ApproveNewSession queries the API on a new goroutine and reports the
// verdict through done. The request is not tied to ctx cancellation: a
// client that disconnects simply abandons it.
func (r *RemoteAuthority) ApproveNewSession(ctx context.Context, ip string, accountID uint32, done func(Verdict)) {
	ctx = context.WithoutCancel(ctx)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		done(r.approve(ctx, ip, accountID))
	}()
}

func (r *RemoteAuthority) approve(ctx context.Context, ip string, accountID uint32) Verdict {
	var resp approvalResponse
	err := r.do(ctx, http.MethodGet, r.endpoint(accountID, ip, "approve"), &resp)
	if err != nil {
		return r.transient(fmt.Sprintf("approve request failed: %v", err))
	}

	switch resp.Action {
	case ActionAllow:
		return Verdict{Allowed: true, LogMessage: resp.Details}
	case ActionWarn:
		r.logger.Warn("session api warning",
			"account_id", accountID,
			"ip", ip,
			"details", resp.Details,
		)
		return Verdict{Allowed: true, LogMessage: resp.Details}
	case ActionReject:
		return Verdict{
			Allowed:    false,
			Title:      resp.Title,
			Message:    resp.Message,
			LogMessage: resp.Details,
		}
	case ActionTempFail:
		return r.transient("session api temporary failure: " + resp.Details)
	default:
		return r.transient(fmt.Sprintf("session api returned unknown action %q", resp.Action))
	}
}

func (r *RemoteAuthority) transient(logMessage string) Verdict {
	return Verdict{
		Allowed:          r.cfg.FailOpen,
		TransientFailure: true,
		Title:            unavailableTitle,
		Message:          unavailableMessage,
		LogMessage:       logMessage,
	}
}

// NotifySessionStart tells the API a session was issued.
func (r *RemoteAuthority) NotifySessionStart(ctx context.Context, ip string, accountID uint32) error {
	if err := r.do(ctx, http.MethodPost, r.endpoint(accountID, ip, "start"), nil); err != nil {
		return oops.Code("SESSION_API_NOTIFY_FAILED").
			With("account_id", accountID).
			With("ip", ip).
			Wrap(err)
	}
	return nil
}

// Wait blocks until every in-flight approval has delivered its verdict.
func (r *RemoteAuthority) Wait() {
	r.inflight.Wait()
}

func (r *RemoteAuthority) endpoint(accountID uint32, ip, action string) string {
	return r.base.JoinPath("v1", "core3", "account", fmt.Sprint(accountID), "session", "ip", ip, action).String()
}

// do performs one API call with retries. Transport errors and 5xx responses
// are retried; anything else fails immediately.
func (r *RemoteAuthority) do(ctx context.Context, method, endpoint string, out any) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries,
		retry.WithCappedDuration(maxRemoteBackoff, retry.NewExponential(r.cfg.Backoff)))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.once(ctx, method, endpoint, out)
		if err != nil {
			r.logger.Debug("session api call failed",
				"method", method,
				"endpoint", endpoint,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	})
}

func (r *RemoteAuthority) once(ctx context.Context, method, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return oops.Code("SESSION_API_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return retry.RetryableError(oops.Code("SESSION_API_UNREACHABLE").Wrap(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return retry.RetryableError(oops.Code("SESSION_API_UNREACHABLE").Wrap(err))
	}

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(oops.Code("SESSION_API_SERVER_ERROR").
			With("status", resp.StatusCode).
			Errorf("session api returned %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return oops.Code("SESSION_API_BAD_STATUS").
			With("status", resp.StatusCode).
			Errorf("session api returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return oops.Code("SESSION_API_BAD_RESPONSE").Wrap(err)
	}
	return nil
}

var _ Authority = (*RemoteAuthority)(nil)
