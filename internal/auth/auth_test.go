package auth_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/numrent/internal/auth"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestIssuer_RoundTrip(t *testing.T) {
	now := epoch
	iss := auth.NewIssuer("s3cret", time.Hour, []int64{42}).WithClock(func() time.Time { return now })

	tests := []struct {
		name   string
		userID int64
		want   auth.Role
	}{
		{name: "User", userID: 7, want: auth.RoleUser},
		{name: "Admin", userID: 42, want: auth.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expires, err := iss.Issue(tt.userID)
			require.NoError(t, err)
			assert.Equal(t, epoch.Add(time.Hour), expires)

			p, err := iss.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, auth.Principal{UserID: tt.userID, Role: tt.want}, p)
		})
	}
}

func TestIssuer_Rejects(t *testing.T) {
	now := epoch
	iss := auth.NewIssuer("s3cret", time.Hour, nil).WithClock(func() time.Time { return now })

	token, _, err := iss.Issue(7)
	require.NoError(t, err)

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := auth.NewIssuer("other", time.Hour, nil).WithClock(func() time.Time { return now }).Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Tampered", func(t *testing.T) {
		_, err := iss.Verify(token[:len(token)-2] + "xx")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "7", "role": "admin", "iss": "numrent", "exp": now.Add(time.Hour).Unix(),
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = iss.Verify(s)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		later := auth.NewIssuer("s3cret", time.Hour, nil).WithClock(func() time.Time { return now.Add(2 * time.Hour) })

		_, err := later.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: 3, Role: auth.RoleAdmin})
	p, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.True(t, p.Admin())
}

func sign(botToken string, fields map[string]string) string {
	lines := make([]string, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		lines = append(lines, k+"="+fields[k])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))

	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyTelegramLogin(t *testing.T) {
	const bot = "123:ABC"

	fields := func() map[string]string {
		f := map[string]string{
			"id":         "99",
			"first_name": "Ann",
			"username":   "ann",
			"auth_date":  "1772366400", // epoch
		}
		f["hash"] = sign(bot, f)

		return f
	}

	login, err := auth.VerifyTelegramLogin(bot, fields(), 24*time.Hour, epoch)
	require.NoError(t, err)
	assert.Equal(t, auth.TelegramLogin{UserID: 99, Username: "ann"}, login)

	forged := fields()
	forged["id"] = "1"
	_, err = auth.VerifyTelegramLogin(bot, forged, 24*time.Hour, epoch)
	assert.ErrorIs(t, err, auth.ErrInvalidLogin)

	_, err = auth.VerifyTelegramLogin(bot, fields(), time.Hour, epoch.Add(2*time.Hour))
	assert.ErrorIs(t, err, auth.ErrInvalidLogin)

	_, err = auth.VerifyTelegramLogin("other", fields(), 0, epoch)
	assert.ErrorIs(t, err, auth.ErrInvalidLogin)
}
