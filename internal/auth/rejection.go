// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rejection codes.
const (
	CodeVersionMismatch      = "AUTH_VERSION_MISMATCH"
	CodeRegistrationDisabled = "AUTH_REGISTRATION_DISABLED"
	CodeAccountInactive      = "AUTH_ACCOUNT_INACTIVE"
	CodeInvalidCredentials   = "AUTH_INVALID_CREDENTIALS"
	CodeAccountBanned        = "AUTH_ACCOUNT_BANNED"
	CodeSessionDenied        = "AUTH_SESSION_DENIED"
	CodeRateLimited          = "AUTH_RATE_LIMITED"
)

// Default user-facing texts.
const (
	DefaultLoginErrorTitle  = "Login Error"
	DefaultRegistrationText = "Automatic registration is disabled. Please contact an administrator to get access."
	DefaultInactiveTitle    = "Account Disabled"
	DefaultInactiveText     = "Contact an administrator to find out what happened."
	defaultVersionMessage   = "The client you are attempting to connect with does not match that required by the server."
	invalidCredentialsTitle = "Wrong Password"
	invalidCredentialsText  = "The password you entered was incorrect."
	bannedTitle             = "Account Banned"
	rateLimitedMessage      = "Too many login attempts. Please wait before trying again."
)

// Rejection is an expected, user-facing login refusal.
// Title and Message are suitable for direct display.
type Rejection struct {
	Code    string
	Title   string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Title)
}

// AsRejection returns the Rejection in err's chain, if any.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// VersionMismatch is returned when the client version differs from the
// required one.
func VersionMismatch() *Rejection {
	return &Rejection{Code: CodeVersionMismatch, Title: DefaultLoginErrorTitle, Message: defaultVersionMessage}
}

// RateLimited is returned when a client exceeds its login attempt budget.
func RateLimited() *Rejection {
	return &Rejection{Code: CodeRateLimited, Title: DefaultLoginErrorTitle, Message: rateLimitedMessage}
}

// SessionDenied wraps a session authority refusal.
func SessionDenied(title, message string) *Rejection {
	if title == "" {
		title = DefaultLoginErrorTitle
	}
	return &Rejection{Code: CodeSessionDenied, Title: title, Message: message}
}

// CheckVersion rejects clientVersion unless it equals required.
// An empty required version disables the check.
func CheckVersion(required, clientVersion string) error {
	if required == "" || required == clientVersion {
		return nil
	}
	return VersionMismatch()
}

// FormatBanDuration renders the time left on a ban. Days, hours and minutes
// are omitted when zero; seconds are always printed.
func FormatBanDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}

	days := total / 86400
	total -= days * 86400
	hours := total / 3600
	total -= hours * 3600
	minutes := total / 60
	total -= minutes * 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%d Days ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%d Hours ", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%d Minutes ", minutes)
	}
	fmt.Fprintf(&b, "%d Seconds", total)
	return b.String()
}

func bannedRejection(remaining time.Duration, reason string) *Rejection {
	msg := "Your account has been banned by an administrator.\n\n" +
		"Time remaining: " + FormatBanDuration(remaining) + "\n" +
		"Reason: " + reason
	return &Rejection{Code: CodeAccountBanned, Title: bannedTitle, Message: msg}
}
