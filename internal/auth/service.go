package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/liftlogapp/liftlog/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "liftlog-session||"
	tokensSetKey     = "liftlog-sessions"
)

var ErrNotLoggedIn = errors.New("not logged in")

type Session struct {
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Login creates a new session for the given user and returns its token.
func (s *Service) Login(ctx context.Context, userID int, createdAt time.Time) (string, error) {
	token, err := s.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionJson, err := json.Marshal(Session{
		UserID:    userID,
		CreatedAt: createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, sessionKey, sessionJson, s.ttl).Err(); err != nil {
		return "", err
	}

	// add token to the list of sessions
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	sessionKey := sessionKeyPrefix + token
	existed, err := s.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return err
	}

	// remove token from the list of sessions
	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return err
	}

	if existed == 0 {
		return ErrNotLoggedIn
	}
	return nil
}

// ScanAndClean runs through the sessions set and removes tokens whose
// session keys already expired in redis.
func (s *Service) ScanAndClean(ctx context.Context) {
	sessionTokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}
	if len(sessionTokens) == 0 {
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		exists, err := s.redisClient.Exists(ctx, sessionKey).Result()
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}
		if exists > 0 {
			continue
		}
		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
		}
	}
}
