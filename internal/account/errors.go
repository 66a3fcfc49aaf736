// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import "errors"

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when creating an account whose username
// already exists.
var ErrUsernameTaken = errors.New("username taken")
