package redis

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOTPTTL  = 10 * time.Minute
	otpDigits      = 6
	maxOTPAttempts = 5
	otpKeyPrefix   = "otp:"
	otpTriesPrefix = "otp_tries:"
)

// OTPStore keeps one-time verification codes in Redis.
// Key format: otp:<email>, with a companion otp_tries:<email> attempt counter.
// Both expire after the code TTL.
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOTPStore creates an OTPStore. If ttl <= 0, defaultOTPTTL is used.
func NewOTPStore(client *redis.Client, ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPStore{client: client, ttl: ttl}
}

// Issue generates a fresh code for email, replacing any previous one.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := randomCode(otpDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKeyPrefix+email, code, s.ttl)
	pipe.Del(ctx, otpTriesPrefix+email)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Consume reports whether code matches the stored one. A matching code is
// deleted; after maxOTPAttempts misses the stored code is discarded.
func (s *OTPStore) Consume(ctx context.Context, email, code string) (bool, error) {
	key := otpKeyPrefix + email
	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}

	if stored != code {
		tries, err := s.client.Incr(ctx, otpTriesPrefix+email).Result()
		if err != nil {
			return false, fmt.Errorf("count otp attempt: %w", err)
		}
		if tries == 1 {
			s.client.Expire(ctx, otpTriesPrefix+email, s.ttl)
		}
		if tries >= maxOTPAttempts {
			s.client.Del(ctx, key, otpTriesPrefix+email)
		}
		return false, nil
	}

	// Only the caller that actually deletes the key wins.
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	s.client.Del(ctx, otpTriesPrefix+email)
	return n == 1, nil
}

func randomCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
