package intent

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"intentlink/internal/errors"
)

var (
	toPathSafe   = strings.NewReplacer("+", "-", "/", "_")
	fromPathSafe = strings.NewReplacer("-", "+", "_", "/")
)

// Encode turns an intention into a path-safe token. The token is a plain,
// reversible encoding: anyone holding it can read the intention.
func Encode(i Intention) (string, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return "", errors.EncodingError(err)
	}
	token := base64.StdEncoding.EncodeToString(data)
	token = toPathSafe.Replace(token)
	return strings.TrimRight(token, "="), nil
}

// Decode reverses Encode. It never returns a partially populated intention:
// on any failure the zero Intention and a decoding error are returned.
func Decode(token string) (Intention, error) {
	s := fromPathSafe.Replace(token)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Intention{}, errors.DecodingError("not base64", err)
	}
	if !utf8.Valid(data) {
		return Intention{}, errors.DecodingError("not text", nil)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Intention{}, errors.DecodingError("empty payload", nil)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Intention{}, errors.DecodingError("malformed payload", err)
	}
	if len(raw) == 0 {
		return Intention{}, errors.DecodingError("empty payload", nil)
	}

	var i Intention
	if err := json.Unmarshal(trimmed, &i); err != nil {
		return Intention{}, errors.DecodingError("malformed payload", err)
	}
	if i.Activity == "" || i.ScheduledAt.IsZero() {
		return Intention{}, errors.DecodingError("activity and scheduledAt are required", nil)
	}
	return i, nil
}

// ExtractToken accepts a bare token or a share link and returns the token,
// which is always the last path segment.
func ExtractToken(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
