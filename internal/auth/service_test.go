package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestAuthService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewAuthService(time.Hour, db)
	require.NotNil(t, authService)
	assert.NotNil(t, authService.redisClient)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		assert.Equal(t, tokenLength, s)
		return testToken, nil
	}

	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, fmt.Sprintf("7:%d", now.Unix()), time.Hour).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), 7, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Login_TokenError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewAuthService(time.Hour, db)
	authService.RandStringFunc = func(int) (string, error) {
		return "", errors.New("no entropy")
	}

	token, err := authService.Login(context.Background(), 7, time.Now())
	assert.EqualError(t, err, "no entropy")
	assert.Empty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewAuthService(time.Hour, db)
	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "unknown").SetErr(redis.Nil)
	loggedOut, err := authService.Logout(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, loggedOut)

	mock.ExpectGet(sessionKeyPrefix + "tkn").SetVal("7:1717400000")
	mock.ExpectDel(sessionKeyPrefix + "tkn").SetVal(1)
	mock.ExpectSRem(tokensSetKey, "tkn").SetVal(1)
	loggedOut, err = authService.Logout(ctx, "tkn")
	require.NoError(t, err)
	assert.True(t, loggedOut)

	mock.ExpectGet(sessionKeyPrefix + "tkn").SetErr(errors.New("connection refused"))
	loggedOut, err = authService.Logout(ctx, "tkn")
	assert.EqualError(t, err, "connection refused")
	assert.False(t, loggedOut)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	then := now.Add(-2 * time.Hour)

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewAuthService(ttl, rdb)
	authService.NowFunc = func() time.Time { return now }

	t1, t2, t3, t4 := "token1", "token2", "token3", "token4"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2, t3, t4})
	mock.ExpectGet(sessionKeyPrefix + t1).SetVal(fmt.Sprintf("1:%d", then.Unix()))
	mock.ExpectGet(sessionKeyPrefix + t2).SetVal(fmt.Sprintf("2:%d", now.Unix()))
	mock.ExpectGet(sessionKeyPrefix + t3).SetErr(redis.Nil)
	mock.ExpectGet(sessionKeyPrefix + t4).SetVal("garbage")

	// t2 is still fresh, the rest goes
	for _, token := range []string{t1, t3, t4} {
		mock.ExpectDel(sessionKeyPrefix + token).SetVal(1)
		mock.ExpectSRem(tokensSetKey, token).SetVal(1)
	}

	authService.ScanAndClean(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ScanAndClean_NoSessions(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewAuthService(time.Hour, rdb)
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{})

	authService.ScanAndClean(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_RunCleanup_StopsOnCancel(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewAuthService(time.Hour, rdb)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		authService.RunCleanup(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestParseSessionValue(t *testing.T) {
	userID, createdAt, err := parseSessionValue("42:1717400000")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, int64(1717400000), createdAt.Unix())

	for _, invalid := range []string{"", "42", "x:1717400000", "42:y"} {
		_, _, err := parseSessionValue(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestLoginChecker_IsLogged(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	loginChecker := NewLoginChecker(time.Hour, db)
	loginChecker.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	userID, isLogged, err := loginChecker.IsLogged(ctx, "invalid token")
	require.NoError(t, err)
	assert.False(t, isLogged)
	assert.Zero(t, userID)

	sessionKey := sessionKeyPrefix + "test-token"
	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("7:%d", now.Add(-time.Minute).Unix()))
	userID, isLogged, err = loginChecker.IsLogged(ctx, "test-token")
	require.NoError(t, err)
	assert.True(t, isLogged)
	assert.Equal(t, 7, userID)

	// expired
	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("7:%d", now.Add(-2*time.Hour).Unix()))
	_, isLogged, err = loginChecker.IsLogged(ctx, "test-token")
	require.NoError(t, err)
	assert.False(t, isLogged)

	mock.ExpectGet(sessionKey).SetErr(errors.New("connection refused"))
	_, isLogged, err = loginChecker.IsLogged(ctx, "test-token")
	assert.Error(t, err)
	assert.False(t, isLogged)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithUserID(context.Background(), 3)
	userID, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 3, userID)

	_, ok = UserIDFromContext(ContextWithUserID(context.Background(), 0))
	assert.False(t, ok)
}

func TestValidateRegistration(t *testing.T) {
	assert.NoError(t, ValidateRegistration("ana@fit.rs", "secret1", "Ana"))

	err := ValidateRegistration("ana.fit.rs", "123", " ")
	require.ErrorIs(t, err, ErrInvalidUser)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "password")
	assert.Contains(t, err.Error(), "name")

	assert.NoError(t, ValidateRegistration("ana@fit.rs", strings.Repeat("x", MaxPasswordLength), "Ana"))
	err = ValidateRegistration("ana@fit.rs", strings.Repeat("x", MaxPasswordLength+1), "Ana")
	require.ErrorIs(t, err, ErrInvalidUser)
	assert.Contains(t, err.Error(), "longer than")

	for _, email := range []string{"@fit.rs", "ana@", "ana@@fit.rs", ""} {
		assert.False(t, ValidEmail(email), email)
	}
	assert.Equal(t, "ana@fit.rs", NormalizeEmail("  Ana@Fit.RS "))
}
