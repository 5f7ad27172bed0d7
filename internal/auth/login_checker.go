package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	nowFunc     func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		nowFunc:     time.Now,
	}
}

// IsLogged resolves the session token to the id of the logged user.
// Unknown and expired tokens are not an error, isLogged is false for them.
func (as *LoginChecker) IsLogged(ctx context.Context, token string) (userID int, isLogged bool, err error) {
	cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	userID, createdAt, err := parseSessionValue(cmd.Val())
	if err != nil {
		return 0, false, err
	}

	if as.nowFunc().Sub(createdAt) > as.ttl {
		return 0, false, nil
	}

	return userID, true, nil
}
