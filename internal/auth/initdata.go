// Package auth verifies Telegram Mini Apps init data: the signed,
// time-bounded credential that proves a request really comes from the
// claimed Telegram user.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInitData is returned for every verification failure. Callers
// must not expose which check failed.
var ErrInvalidInitData = errors.New("invalid init data")

// futureSkew is the tolerated clock drift for auth_date values ahead of
// the server clock.
const futureSkew = 30 * time.Second

// hmacKeySeed is the fixed outer HMAC key defined by the Telegram
// Mini Apps signing scheme.
const hmacKeySeed = "WebAppData"

var timeNow = time.Now

// Fields is the verified key/value set of an init-data credential,
// with the hash field removed.
type Fields map[string]string

// Verify checks the signature and freshness of a raw init-data string.
//
// The credential is a URL query string. The "hash" field is removed, the
// remaining pairs are joined as "key=value" lines sorted by key, and the
// result is authenticated with HMAC-SHA256 keyed by
// HMAC-SHA256("WebAppData", botToken). auth_date must lie within
// [now-maxAge, now+30s].
//
// On success the full verified field set is returned so callers can
// extract whatever signed fields they need.
func Verify(raw string, botToken string, maxAge time.Duration) (Fields, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	fields := make(Fields, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}

	receivedHash, ok := fields["hash"]
	if !ok || receivedHash == "" {
		return nil, ErrInvalidInitData
	}
	delete(fields, "hash")

	authDateRaw, ok := fields["auth_date"]
	if !ok {
		return nil, ErrInvalidInitData
	}
	authDate, err := strconv.ParseInt(authDateRaw, 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	now := timeNow().Unix()
	if authDate < now-int64(maxAge.Seconds()) || authDate > now+int64(futureSkew.Seconds()) {
		return nil, ErrInvalidInitData
	}

	if !hmac.Equal([]byte(computeHash(fields, botToken)), []byte(receivedHash)) {
		return nil, ErrInvalidInitData
	}

	return fields, nil
}

func computeHash(fields Fields, botToken string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+fields[key])
	}
	checkString := strings.Join(lines, "\n")

	seed := hmac.New(sha256.New, []byte(hmacKeySeed))
	seed.Write([]byte(botToken))
	secret := seed.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}
