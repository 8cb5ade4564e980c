package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

func (c *LoginChecker) LoggedUserID(ctx context.Context, token string) (int, error) {
	sessionKey := sessionKeyPrefix + token
	sessionJson, err := c.redisClient.Get(ctx, sessionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotLoggedIn
		}
		return 0, err
	}

	var session Session
	if err := json.Unmarshal([]byte(sessionJson), &session); err != nil {
		return 0, fmt.Errorf("unmarshal session: %w", err)
	}

	// redis TTL already expires sessions, but double check the age here
	if time.Since(session.CreatedAt) > c.ttl {
		return 0, ErrNotLoggedIn
	}

	return session.UserID, nil
}
