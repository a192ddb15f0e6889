package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Admin keys look like gp_{env}_{prefix}_{secret}, for example
// gp_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b.
const (
	KeyPrefixLen = 6  // hex encoded 3 bytes, stored for lookup
	KeySecretLen = 32 // hex encoded 16 bytes, never stored
)

// Environment indicators embedded in the key.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^gp_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedKey holds a freshly minted key. Plaintext is shown once.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// ParsedKey contains the parts of a plaintext key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// GenerateKey mints a new admin key for env. Unknown envs fall back to live.
func GenerateKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("gp_%s_%s_%s", env, prefix, secret)
	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

// ParseKey splits a plaintext key into its parts.
func ParseKey(key string) (*ParsedKey, error) {
	m := keyFormatRegex.FindStringSubmatch(key)
	if m == nil {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
