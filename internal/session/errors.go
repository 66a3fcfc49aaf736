// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import "errors"

// ErrNotFound is returned when an account has no session.
var ErrNotFound = errors.New("session not found")
