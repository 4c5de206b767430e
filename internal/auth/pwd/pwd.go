// Package pwd hashes and validates user passwords.
//
// A stored password reference is "#<scheme>#<hash>". Scheme 01 is a keyed
// HMAC-SHA512 kept for existing accounts; scheme 02 (argon2id) is the
// default. Validating a reference made with an older scheme succeeds with
// StatusOutdated so the caller can re-hash.
package pwd

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// DefaultScheme is used for every new hash.
const DefaultScheme = "02"

var (
	ErrNotMatching    = errors.New("pwd: password does not match")
	ErrSchemeNotFound = errors.New("pwd: unknown scheme")
	ErrMalformedRef   = errors.New("pwd: malformed password reference")
	ErrKeyTooShort    = errors.New("pwd: key must be at least 32 bytes")
)

// SchemeStatus tells whether a validated reference uses the default scheme.
type SchemeStatus int

const (
	StatusOk SchemeStatus = iota
	StatusOutdated
)

// ContentToHash is a clear password and the per-user salt.
type ContentToHash struct {
	Content string
	Salt    uuid.UUID
}

type scheme interface {
	hash(key []byte, to ContentToHash) (string, error)
	validate(key []byte, to ContentToHash, hashed string) error
}

var schemes = map[string]scheme{
	"01": scheme01{},
	"02": scheme02{},
}

// Hasher holds the server-side key mixed into every hash.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher for a raw key.
func NewHasher(key []byte) (*Hasher, error) {
	if len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	return &Hasher{key: key}, nil
}

// NewHasherFromB64 decodes a base64url key, as printed by gen-key.
func NewHasherFromB64(key string) (*Hasher, error) {
	raw, err := DecodeKey(key)
	if err != nil {
		return nil, err
	}
	return NewHasher(raw)
}

// Hash hashes with the default scheme.
func (h *Hasher) Hash(to ContentToHash) (string, error) {
	return h.hashWith(DefaultScheme, to)
}

func (h *Hasher) hashWith(name string, to ContentToHash) (string, error) {
	s, ok := schemes[name]
	if !ok {
		return "", ErrSchemeNotFound
	}
	hashed, err := s.hash(h.key, to)
	if err != nil {
		return "", err
	}
	return "#" + name + "#" + hashed, nil
}

// Validate checks to against a stored reference.
func (h *Hasher) Validate(to ContentToHash, ref string) (SchemeStatus, error) {
	name, hashed, err := parseRef(ref)
	if err != nil {
		return 0, err
	}
	s, ok := schemes[name]
	if !ok {
		return 0, ErrSchemeNotFound
	}
	if err := s.validate(h.key, to, hashed); err != nil {
		return 0, err
	}
	if name != DefaultScheme {
		return StatusOutdated, nil
	}
	return StatusOk, nil
}

func parseRef(ref string) (name, hashed string, err error) {
	if !strings.HasPrefix(ref, "#") {
		return "", "", ErrMalformedRef
	}
	name, hashed, ok := strings.Cut(ref[1:], "#")
	if !ok || name == "" || hashed == "" {
		return "", "", ErrMalformedRef
	}
	return name, hashed, nil
}

// DecodeKey accepts base64url with or without padding.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if raw, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return raw, nil
}

// scheme01 is HMAC-SHA512(key, content || salt).
type scheme01 struct{}

func (scheme01) hash(key []byte, to ContentToHash) (string, error) {
	return base64.RawURLEncoding.EncodeToString(hmacSHA512(key, to)), nil
}

func (scheme01) validate(key []byte, to ContentToHash, hashed string) error {
	want, err := base64.RawURLEncoding.DecodeString(hashed)
	if err != nil {
		return ErrMalformedRef
	}
	if !hmac.Equal(hmacSHA512(key, to), want) {
		return ErrNotMatching
	}
	return nil
}

func hmacSHA512(key []byte, to ContentToHash) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(to.Content))
	mac.Write([]byte(to.Salt.String()))
	return mac.Sum(nil)
}

// Argon2id parameters of scheme 02.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// scheme02 is argon2id over the key-peppered password, encoded in PHC form.
type scheme02 struct{}

func (scheme02) hash(key []byte, to ContentToHash) (string, error) {
	sum := argon2.IDKey(pepper(key, to.Content), to.Salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(to.Salt[:]),
		base64.RawStdEncoding.EncodeToString(sum)), nil
}

func (scheme02) validate(key []byte, to ContentToHash, hashed string) error {
	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrMalformedRef
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrMalformedRef
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return ErrMalformedRef
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrMalformedRef
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return ErrMalformedRef
	}

	got := argon2.IDKey(pepper(key, to.Content), salt, time, memory, threads, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrNotMatching
	}
	return nil
}

// pepper mixes the server key into the password before argon2 sees it.
func pepper(key []byte, content string) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(content))
	return mac.Sum(nil)
}
