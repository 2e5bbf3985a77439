package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte("token=gIkuvaNzQIHg&user_id=U2147483697&text=Boston,US")
	secret := "8f742231b10e8888abcd99yyyzzz85a5"

	assert.NoError(t, verifySignatureAt(secret, ts, sign(secret, ts, body), body, now))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte("user_id=U1&text=Boston,US")
	secret := "shhh"

	sig := sign(secret, ts, body)
	assert.Error(t, verifySignatureAt(secret, ts, sig, []byte("user_id=U1&text=Reykjavik,IS"), now))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte("user_id=U1")

	sig := sign("other-secret", ts, body)
	assert.Error(t, verifySignatureAt("shhh", ts, sig, body, now))
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	stale := now.Add(-6 * time.Minute)
	ts := strconv.FormatInt(stale.Unix(), 10)
	body := []byte("user_id=U1")
	secret := "shhh"

	// Signature itself is valid; the freshness window alone rejects it.
	assert.Error(t, verifySignatureAt(secret, ts, sign(secret, ts, body), body, now))

	// Future timestamps are just as suspect.
	future := now.Add(6 * time.Minute)
	ts = strconv.FormatInt(future.Unix(), 10)
	assert.Error(t, verifySignatureAt(secret, ts, sign(secret, ts, body), body, now))
}

func TestVerifySignatureRejectsMissingHeaders(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Error(t, verifySignatureAt("shhh", "", "v0=abc", []byte("x"), now))
	assert.Error(t, verifySignatureAt("shhh", "1700000000", "", []byte("x"), now))
	assert.Error(t, verifySignatureAt("shhh", "not-a-number", "v0=abc", []byte("x"), now))
}
