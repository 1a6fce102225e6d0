package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidKeyHash         = errors.New("invalid admin key hash format")
	ErrIncompatibleKeyVersion = errors.New("incompatible admin key hash version")
)

// Argon2idParams tunes the argon2id key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashAdminKey derives an encoded argon2id hash of key suitable for
// ROSTER_ADMIN_KEY_HASH.
func HashAdminKey(key string, params Argon2idParams) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("admin key must not be empty")
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// AdminKeyVerifier checks presented admin API keys against a stored hash.
type AdminKeyVerifier struct {
	params Argon2idParams
	salt   []byte
	hash   []byte
}

// NewAdminKeyVerifier parses an encoded argon2id hash.
func NewAdminKeyVerifier(encoded string) (*AdminKeyVerifier, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidKeyHash
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleKeyVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, ErrInvalidKeyHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, ErrInvalidKeyHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, ErrInvalidKeyHash
	}
	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(hash))

	return &AdminKeyVerifier{params: params, salt: salt, hash: hash}, nil
}

// Verify returns ErrUnauthorized unless key matches the stored hash.
func (v *AdminKeyVerifier) Verify(key string) error {
	if v == nil || key == "" {
		return ErrUnauthorized
	}
	candidate := argon2.IDKey([]byte(key), v.salt, v.params.Iterations, v.params.Memory, v.params.Parallelism, v.params.KeyLength)
	if subtle.ConstantTimeCompare(v.hash, candidate) == 1 {
		return nil
	}
	return ErrUnauthorized
}
