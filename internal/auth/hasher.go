// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // legacy account hashes are SHA-1 and must still verify
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// SaltLength is the number of characters in a generated salt.
const SaltLength = 32

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CredentialHasher computes password hashes for both schemes.
type CredentialHasher interface {
	// LegacyHash returns the unsalted hash of password.
	LegacyHash(password string) string

	// SaltedHash returns the salted hash of password.
	SaltedHash(password, salt string) string

	// NewSalt returns a fresh random salt.
	NewSalt() (string, error)
}

// SHAHasher implements CredentialHasher with SHA-1 and SHA-256.
type SHAHasher struct {
	secret string
}

// NewSHAHasher creates a hasher mixing secret into every salted hash.
func NewSHAHasher(secret string) *SHAHasher {
	return &SHAHasher{secret: secret}
}

// LegacyHash returns hex(SHA-1(password)).
func (h *SHAHasher) LegacyHash(password string) string {
	sum := sha1.Sum([]byte(password)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// SaltedHash returns hex(SHA-256(secret + password + salt)).
func (h *SHAHasher) SaltedHash(password, salt string) string {
	sum := sha256.Sum256([]byte(h.secret + password + salt))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns SaltLength random alphanumeric characters.
func (h *SHAHasher) NewSalt() (string, error) {
	buf := make([]byte, SaltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	// Bytes at or above limit are skipped so every character is equally likely.
	out := make([]byte, 0, SaltLength)
	limit := byte(256 - 256%len(saltAlphabet))
	for len(out) < SaltLength {
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == SaltLength {
				break
			}
		}
		if len(out) < SaltLength {
			if _, err := rand.Read(buf); err != nil {
				return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
			}
		}
	}
	return string(out), nil
}

// Verify checks password against a stored hash. An empty salt selects the
// legacy scheme; legacy reports which scheme was used.
func Verify(hasher CredentialHasher, password, storedHash, salt string) (ok, legacy bool) {
	var computed string
	if salt == "" {
		legacy = true
		computed = hasher.LegacyHash(password)
	} else {
		computed = hasher.SaltedHash(password, salt)
	}
	ok = subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
	return ok, legacy
}

var _ CredentialHasher = (*SHAHasher)(nil)
