package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidLogin = errors.New("auth: invalid telegram login")

// TelegramLogin is the payload the Telegram login widget hands to the site.
type TelegramLogin struct {
	UserID   int64
	Username string
}

// VerifyTelegramLogin checks fields produced by the Telegram login widget:
// hash must be the HMAC-SHA256 of the sorted "key=value" lines keyed by
// SHA256(botToken), and auth_date must be no older than maxAge.
func VerifyTelegramLogin(botToken string, fields map[string]string, maxAge time.Duration, now time.Time) (TelegramLogin, error) {
	hash := fields["hash"]
	if hash == "" {
		return TelegramLogin{}, fmt.Errorf("%w: missing hash", ErrInvalidLogin)
	}

	lines := make([]string, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if k == "hash" {
			continue
		}

		lines = append(lines, k+"="+fields[k])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))

	want, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(mac.Sum(nil), want) {
		return TelegramLogin{}, fmt.Errorf("%w: bad hash", ErrInvalidLogin)
	}

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return TelegramLogin{}, fmt.Errorf("%w: bad auth_date", ErrInvalidLogin)
	}

	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return TelegramLogin{}, fmt.Errorf("%w: login expired", ErrInvalidLogin)
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return TelegramLogin{}, fmt.Errorf("%w: bad id", ErrInvalidLogin)
	}

	return TelegramLogin{UserID: id, Username: fields["username"]}, nil
}
