package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxDepositAttempts bounds the retries of the deposit transaction. The
// transaction watches the whole users hash, so a write to any other user
// aborts it without a real conflict.
const maxDepositAttempts = 10

var userOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wingo_user_operations_total",
	Help: "Total user registry operations by operation and outcome",
}, []string{"operation", "outcome"})

// Store is the Redis-backed user registry.
type Store struct {
	redis  *redis.Client
	keys   Keys
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore creates a store. It panics on a nil client, like other Redis-backed components.
func NewStore(redisClient *redis.Client, keyPrefix string) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		keys:   Keys{Prefix: keyPrefix},
		now:    time.Now,
		logger: log.With().Str("component", "user-store").Logger(),
	}
}

// Register creates the user if absent. Registering an existing user returns
// the stored record unchanged.
func (s *Store) Register(ctx context.Context, username string) (*User, error) {
	name := Normalize(username)
	if utf8.RuneCountInString(name) < MinUsernameLength {
		userOperationsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, ErrInvalidUsername
	}

	user := &User{
		ID:        uuid.NewString(),
		Username:  name,
		CreatedAt: s.now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	created, err := s.redis.HSetNX(ctx, s.keys.Users(), name, data).Result()
	if err != nil {
		userOperationsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("redis hsetnx: %w", err)
	}
	if !created {
		userOperationsTotal.WithLabelValues("register", "exists").Inc()
		return s.get(ctx, name)
	}

	userOperationsTotal.WithLabelValues("register", "created").Inc()
	s.logger.Info().Str("username", name).Msg("New user registered")
	return user, nil
}

// ConfirmDeposit marks a user as having deposited.
func (s *Store) ConfirmDeposit(ctx context.Context, username string) (*User, error) {
	name := Normalize(username)
	if name == "" {
		userOperationsTotal.WithLabelValues("deposit", "invalid").Inc()
		return nil, ErrInvalidUsername
	}

	var updated *User
	key := s.keys.Users()

	// Optimistic update so a concurrent Register of the same name cannot be overwritten.
	// The WATCH covers the whole hash, so aborted transactions are retried.
	txf := func(tx *redis.Tx) error {
		user, err := decode(tx.HGet(ctx, key, name))
		if err != nil {
			return err
		}
		if !user.HasDeposited {
			user.HasDeposited = true
			user.DepositedAt = s.now().UTC()
		}
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, name, data)
			return nil
		})
		updated = user
		return err
	}

	var err error
	for attempt := 1; attempt <= maxDepositAttempts; attempt++ {
		err = s.redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		s.logger.Debug().Str("username", name).Int("attempt", attempt).Msg("Deposit transaction aborted, retrying")
	}
	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("confirm deposit after %d attempts: %w", maxDepositAttempts, err)
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrUserNotFound) {
			outcome = "not_found"
		}
		userOperationsTotal.WithLabelValues("deposit", outcome).Inc()
		return nil, err
	}

	userOperationsTotal.WithLabelValues("deposit", "confirmed").Inc()
	s.logger.Info().Str("username", name).Msg("Deposit confirmed")
	return updated, nil
}

// Status returns the stored record for a user.
func (s *Store) Status(ctx context.Context, username string) (*User, error) {
	name := Normalize(username)
	user, err := s.get(ctx, name)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrUserNotFound) {
			outcome = "not_found"
		}
		userOperationsTotal.WithLabelValues("status", outcome).Inc()
		return nil, err
	}
	userOperationsTotal.WithLabelValues("status", "found").Inc()
	return user, nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Store) get(ctx context.Context, name string) (*User, error) {
	if name == "" {
		return nil, ErrUserNotFound
	}
	return decode(s.redis.HGet(ctx, s.keys.Users(), name))
}

func decode(cmd *redis.StringCmd) (*User, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("redis hget: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return &user, nil
}
