// Package verification issues and checks short-lived verification codes
// (password reset, contact confirmation). Codes live in Redis with an explicit
// TTL rather than in an in-process map, so expiry is durable and every
// instance of the service sees the same codes.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

const codeDigits = 6

// Store issues and verifies one-shot codes.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Store. A non-positive ttl falls back to DefaultTTL.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(subject string) string {
	return "verification:code:" + subject
}

// Issue generates a fresh numeric code for the subject, replacing any
// outstanding one, and stores it with the configured TTL.
func (s *Store) Issue(ctx context.Context, subject string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}

	if err := s.rdb.Set(ctx, key(subject), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}

	return code, nil
}

// verifyScript atomically compares and consumes a code, so two concurrent
// attempts with the correct code cannot both succeed.
var verifyScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then return 0 end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// Verify checks the supplied code for the subject. A correct code is consumed
// (single use); a wrong code is not, and simply fails until the TTL expires.
func (s *Store) Verify(ctx context.Context, subject, code string) (bool, error) {
	res, err := verifyScript.Run(ctx, s.rdb, []string{key(subject)}, code).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("verify code: %w", err)
	}
	return res == 1, nil
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
