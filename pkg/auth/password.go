package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// SaltLength is the number of random bytes generated per password.
const SaltLength = 32

var (
	// ErrMalformedHash means the stored credential cannot be checked at all:
	// the hash does not decode, or it was not computed with the stored salt.
	ErrMalformedHash = errors.New("password: malformed hash")
	ErrEmptySalt     = errors.New("password: empty salt")
)

// Hasher derives argon2id hashes from a caller supplied salt so the salt
// can be persisted next to the hash. Derivations are CPU and memory heavy;
// a semaphore bounds how many run at once.
type Hasher struct {
	params *argon2id.Params
	sem    *semaphore.Weighted
}

type HasherOption func(*Hasher)

// WithParams overrides the argon2id cost parameters.
func WithParams(p argon2id.Params) HasherOption {
	return func(h *Hasher) {
		if p.Memory > 0 && p.Iterations > 0 && p.Parallelism > 0 && p.KeyLength > 0 {
			h.params = &p
		}
	}
}

// WithConcurrency caps simultaneous derivations.
func WithConcurrency(n int64) HasherOption {
	return func(h *Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
	}
}

func NewHasher(opts ...HasherOption) *Hasher {
	params := *argon2id.DefaultParams
	params.SaltLength = SaltLength

	h := &Hasher{
		params: &params,
		sem:    semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hasher) NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Hash returns the PHC encoded argon2id hash of plaintext under salt.
func (h *Hasher) Hash(ctx context.Context, plaintext string, salt []byte) (string, error) {
	if len(salt) == 0 {
		return "", ErrEmptySalt
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	p := h.params
	key := argon2.IDKey([]byte(plaintext), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches encoded. A mismatch is (false, nil);
// an error is only returned when the credential itself is unusable.
func (h *Hasher) Verify(ctx context.Context, plaintext string, salt []byte, encoded string) (bool, error) {
	params, hashSalt, key, err := argon2id.DecodeHash(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if len(salt) == 0 || subtle.ConstantTimeCompare(hashSalt, salt) != 1 {
		return false, fmt.Errorf("%w: salt does not match hash", ErrMalformedHash)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	other := argon2.IDKey([]byte(plaintext), hashSalt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// EncodeSalt is the storage form of a salt.
func EncodeSalt(salt []byte) string {
	return hex.EncodeToString(salt)
}

func DecodeSalt(s string) ([]byte, error) {
	salt, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: salt is not hex: %v", ErrMalformedHash, err)
	}
	return salt, nil
}
