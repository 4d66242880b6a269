package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/quizleague/backend/internal/domain"
)

// Verification errors
var (
	ErrMalformedInitData  = errors.New("invalid init_data format")
	ErrVerificationFailed = errors.New("telegram init data verification failed")
)

// ParseInitData splits a Telegram WebApp init_data query string into its
// key/value pairs and pops the hash field. Values are kept raw; the hash is
// computed over the string exactly as the client sent it.
func ParseInitData(initData string) (map[string]string, string, error) {
	values := make(map[string]string)
	var hash string
	for _, pair := range strings.Split(initData, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, "", ErrMalformedInitData
		}
		if k == "hash" {
			hash = v
			continue
		}
		values[k] = v
	}
	if len(values) == 0 {
		return nil, "", ErrMalformedInitData
	}
	return values, hash, nil
}

// Verify validates init_data against the bot token per the Telegram WebApp
// scheme: the secret key is SHA-256 of the token, and the signed payload is
// the sorted "key=value" lines joined by newlines. On success the parsed
// values are returned.
func Verify(initData, botToken string) (map[string]string, error) {
	values, providedHash, err := ParseInitData(initData)
	if err != nil {
		return nil, err
	}
	if providedHash == "" {
		return nil, ErrVerificationFailed
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values[k])
	}
	checkString := strings.Join(lines, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return nil, ErrVerificationFailed
	}
	return values, nil
}

// ComputeHash returns the hash a client would attach to the given values.
// Exposed for constructing valid payloads in tests and tooling.
func ComputeHash(values map[string]string, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values[k])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// ProfileFromValues extracts the user profile from parsed init data. Newer
// clients send a JSON "user" field; older ones send flat id/first_name/...
// keys.
func ProfileFromValues(values map[string]string) (domain.TelegramProfile, error) {
	if raw, ok := values["user"]; ok && raw != "" {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			decoded = raw
		}
		return ProfileFromJSON([]byte(decoded))
	}

	profile := domain.TelegramProfile{
		ID:        values["id"],
		FirstName: values["first_name"],
		LastName:  values["last_name"],
		Username:  values["username"],
	}
	if profile.ID == "" {
		return domain.TelegramProfile{}, ErrMalformedInitData
	}
	return profile, nil
}

// ProfileFromJSON decodes a Telegram user object. The id may arrive as a
// number or a string; both map to the string identity used everywhere else.
func ProfileFromJSON(data []byte) (domain.TelegramProfile, error) {
	var raw struct {
		ID        any    `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return domain.TelegramProfile{}, ErrMalformedInitData
	}

	var id string
	switch v := raw.ID.(type) {
	case json.Number:
		id = v.String()
	case string:
		id = v
	}
	if id == "" {
		return domain.TelegramProfile{}, ErrMalformedInitData
	}
	return domain.TelegramProfile{
		ID:        id,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Username:  raw.Username,
	}, nil
}
