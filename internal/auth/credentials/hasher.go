package credentials

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"account-service/internal/auth"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	maxMemoryKB   uint32 = 1024 * 1024
	maxTime       uint32 = 16
	maxKeyLength         = 128
	maxSaltLength        = 64
	saltLength           = 16
	keyLength     uint32 = 32
	argon2Prefix         = "$argon2id$"
	dummySecretSz        = 32
)

// Params are the argon2id cost parameters for new hashes.
type Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	// MaxConcurrent bounds how many hash computations run at once.
	MaxConcurrent int64
}

// DefaultParams follow the OWASP argon2id baseline.
func DefaultParams() Params {
	return Params{
		MemoryKB:      64 * 1024,
		Time:          1,
		Parallelism:   4,
		MaxConcurrent: 4,
	}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKB < minMemoryKB || p.MemoryKB > maxMemoryKB:
		return oops.Code("HASH_CONFIG_INVALID").Errorf("memory must be between %d and %d KB", minMemoryKB, maxMemoryKB)
	case p.Time < 1 || p.Time > maxTime:
		return oops.Code("HASH_CONFIG_INVALID").Errorf("time must be between 1 and %d", maxTime)
	case p.Parallelism < 1:
		return oops.Code("HASH_CONFIG_INVALID").Errorf("parallelism must be >= 1")
	case p.MaxConcurrent < 1:
		return oops.Code("HASH_CONFIG_INVALID").Errorf("max concurrent must be >= 1")
	}
	return nil
}

// Hasher hashes and verifies passwords with argon2id. Hashes written by the
// previous bcrypt scheme still verify and report NeedsUpgrade.
//
// Hashing is CPU-bound; a weighted semaphore keeps at most MaxConcurrent
// computations in flight so request goroutines queue instead of piling up.
type Hasher struct {
	params Params
	sem    *semaphore.Weighted
	random io.Reader
	dummy  string
}

// NewHasher validates p and precomputes the dummy hash used for unknown accounts.
func NewHasher(p Params) (*Hasher, error) {
	return newHasher(p, rand.Reader)
}

func newHasher(p Params, random io.Reader) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	h := &Hasher{
		params: p,
		sem:    semaphore.NewWeighted(p.MaxConcurrent),
		random: random,
	}

	secret := make([]byte, dummySecretSz)
	if _, err := io.ReadFull(random, secret); err != nil {
		return nil, auth.E(auth.ErrHashing, "generate dummy secret", err)
	}
	dummy, err := h.compute(base64.RawStdEncoding.EncodeToString(secret))
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

// DummyHash is a valid hash of an unguessable secret with the current
// parameters. Verifying against it costs the same as a real verification.
func (h *Hasher) DummyHash() string {
	return h.dummy
}

// Hash produces a PHC encoded argon2id hash:
// $argon2id$v=19$m=<kb>,t=<iters>,p=<threads>$<salt>$<hash>
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return h.compute(password)
}

func (h *Hasher) compute(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return "", auth.E(auth.ErrHashing, "generate salt", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKB, h.params.Parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A mismatch is (false, nil);
// a malformed or unsupported hash is an ErrHashing error.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, auth.E(auth.ErrHashing, "verify bcrypt", err)
		}
	}

	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, auth.E(auth.ErrHashing, "parse hash", err)
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced by bcrypt or with weaker
// argon2id parameters than the current ones. Unparseable hashes are left alone.
func (h *Hasher) NeedsUpgrade(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false
	}
	return parsed.memory < h.params.MemoryKB ||
		parsed.time < h.params.Time ||
		parsed.parallelism < h.params.Parallelism ||
		uint32(len(parsed.key)) != keyLength
}

func (h *Hasher) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return auth.E(auth.ErrServiceUnavailable, "acquire hashing slot", err)
	}
	return nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phc, error) {
	if !strings.HasPrefix(encoded, argon2Prefix) {
		return nil, errors.New("unsupported algorithm")
	}

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, errors.New("invalid PHC format")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	out := &phc{}
	var seen int
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			// a stored hash must not be able to demand more than we would issue
			if err != nil || n == 0 || n > uint64(maxMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			out.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 || n > uint64(maxTime) {
				return nil, errors.New("invalid time parameter")
			}
			out.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n == 0 {
				return nil, errors.New("invalid parallelism parameter")
			}
			out.parallelism = uint8(n)
		default:
			return nil, fmt.Errorf("unsupported parameter %q", k)
		}
		seen++
	}
	if seen != 3 || out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) == 0 || len(out.salt) > maxSaltLength {
		return nil, errors.New("invalid salt encoding")
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 || len(out.key) > maxKeyLength {
		return nil, errors.New("invalid hash encoding")
	}

	return out, nil
}
