package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCSRFMalformed = errors.New("csrf token malformed")
	ErrCSRFSignature = errors.New("csrf bad signature")
	ErrCSRFExpired   = errors.New("csrf token expired")
)

// GenerateCSRF binds a token to the session: base64(sessionID:unix || hmac).
func GenerateCSRF(secret, sessionID string, now time.Time) string {
	msg := []byte(sessionID + ":" + strconv.FormatInt(now.Unix(), 10))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return base64.RawURLEncoding.EncodeToString(append(msg, mac.Sum(nil)...))
}

func VerifyCSRF(secret, sessionID, token string, maxAge time.Duration, now time.Time) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) <= sha256.Size {
		return ErrCSRFMalformed
	}
	msg := raw[:len(raw)-sha256.Size]
	sig := raw[len(raw)-sha256.Size:]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return ErrCSRFSignature
	}
	idx := strings.LastIndexByte(string(msg), ':')
	if idx < 0 || string(msg[:idx]) != sessionID {
		return ErrCSRFMalformed
	}
	ts, err := strconv.ParseInt(string(msg[idx+1:]), 10, 64)
	if err != nil || ts == 0 {
		return ErrCSRFMalformed
	}
	if maxAge > 0 && now.Unix()-ts > int64(maxAge.Seconds()) {
		return ErrCSRFExpired
	}
	return nil
}
