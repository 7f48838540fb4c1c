package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPFlow_IssueThenVerifyOnce(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()
	email := TestEmail("otp-flow")

	status, body := ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "storeOTP",
		"email":  email,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	code, err := LatestOTPCode(ctx, testDB, email)
	require.NoError(t, err)
	require.Len(t, code, 6)

	status, body = ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "verifyOTP",
		"email":  email,
		"code":   code,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.NotEmpty(t, body["token"])

	// The verified account is now registered.
	status, body = ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "userExists",
		"email":  email,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])

	// Replay of the consumed code is a plain negative.
	status, body = ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "verifyOTP",
		"email":  email,
		"code":   code,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
}

func TestIdentity_UserExistsForSeededAccount(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()
	email := TestEmail("seeded")

	_, err := SeedAccount(ctx, testDB.Pool, email, models.RoleUser)
	require.NoError(t, err)

	status, body := ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "userExists",
		"email":  email,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])
}

func TestOTPFlow_ExpiredCodeRejected(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()
	email := TestEmail("otp-expired")

	require.NoError(t, SeedExpiredOTP(ctx, testDB.Pool, email, "111111"))

	status, body := ts.PostAction(t, "/api/identity", map[string]interface{}{
		"action": "verifyOTP",
		"email":  email,
		"code":   "111111",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
}

func TestOTPFlow_TwoOutstandingCodesBothValid(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()
	email := TestEmail("otp-multi")

	require.NoError(t, ts.OTPs.Issue(ctx, email))
	firstCode, err := LatestOTPCode(ctx, testDB, email)
	require.NoError(t, err)

	require.NoError(t, ts.OTPs.Issue(ctx, email))
	secondCode, err := LatestOTPCode(ctx, testDB, email)
	require.NoError(t, err)

	// Issuing a second code does not invalidate the first.
	ok, err := ts.OTPs.Verify(ctx, email, firstCode)
	require.NoError(t, err)
	assert.True(t, ok)

	if secondCode != firstCode {
		ok, err = ts.OTPs.Verify(ctx, email, secondCode)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestOTPFlow_ConcurrentConsumeSettlesToOneWinner(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()
	email := TestEmail("otp-race")

	require.NoError(t, ts.OTPs.Issue(ctx, email))
	code, err := LatestOTPCode(ctx, testDB, email)
	require.NoError(t, err)

	otpRepo := repositories.NewOTPRepository(testDB.DB)

	const attempts = 10
	results := make([]bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := otpRepo.Consume(ctx, email, code)
			require.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent consume may win")
}
