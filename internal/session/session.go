package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
)

// ErrNotFound is returned when a session id has no live session
var ErrNotFound = errors.New("session not found")

const (
	sessionKeyPrefix  = "session:"
	recoveryKeyPrefix = "recovery:"
	verifyKeyPrefix   = "verify:"
)

// Session is a signed-in browser session backed by redis
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager stores sessions and one-shot recovery tokens in redis. Session
// TTLs slide: every successful lookup renews the expiry.
type Manager struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewManager creates a session manager
func NewManager(client *redis.Client, ttl time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// Create opens a new session for the user
func (m *Manager) Create(ctx context.Context, userID uint, role string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, sessionKeyPrefix+sess.ID, payload, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.Debug("session created",
		zap.String("session_id", sess.ID),
		zap.Uint("user_id", userID),
	)

	return sess, nil
}

// Get loads a session by id and renews its TTL
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	payload, err := m.client.GetEx(ctx, sessionKeyPrefix+id, m.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Delete ends a session. Deleting a missing session is not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser ends every session belonging to the user. Used after
// a password reset so stolen sessions die with the old password.
func (m *Manager) DeleteAllForUser(ctx context.Context, userID uint) error {
	iter := m.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()

		payload, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}

		var sess Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			continue
		}

		if sess.UserID == userID {
			if err := m.client.Del(ctx, key).Err(); err != nil {
				m.logger.Warn("failed to delete user session",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}

	return iter.Err()
}

// CreateRecovery issues a single-use password recovery token
func (m *Manager) CreateRecovery(ctx context.Context, userID uint, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	err := m.client.Set(ctx, recoveryKeyPrefix+token, userID, ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store recovery token: %w", err)
	}

	return token, nil
}

// ConsumeRecovery redeems a recovery token, returning the user it was
// issued for. The token is deleted atomically with the read; a second
// redemption fails with ErrNotFound.
func (m *Manager) ConsumeRecovery(ctx context.Context, token string) (uint, error) {
	userID, err := m.client.GetDel(ctx, recoveryKeyPrefix+token).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to consume recovery token: %w", err)
	}

	return uint(userID), nil
}

// CreateVerification issues a single-use email verification token
func (m *Manager) CreateVerification(ctx context.Context, userID uint, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	if err := m.client.Set(ctx, verifyKeyPrefix+token, userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}

	return token, nil
}

// ConsumeVerification redeems an email verification token
func (m *Manager) ConsumeVerification(ctx context.Context, token string) (uint, error) {
	userID, err := m.client.GetDel(ctx, verifyKeyPrefix+token).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return uint(userID), nil
}

// VerifyRecovery checks a recovery token without consuming it, so the
// reset form can validate the link before the user types a password.
func (m *Manager) VerifyRecovery(ctx context.Context, token string) (uint, error) {
	userID, err := m.client.Get(ctx, recoveryKeyPrefix+token).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to verify recovery token: %w", err)
	}

	return uint(userID), nil
}
