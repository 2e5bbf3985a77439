package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	SignatureHdrName = "X-Slack-Signature"
	TimestampHdrName = "X-Slack-Request-Timestamp"

	signatureVersion = "v0"

	// MaxSignatureAge bounds how stale a signed request may be. Anything older
	// is rejected as a possible replay.
	MaxSignatureAge = 5 * time.Minute
)

// VerifySignature checks a Slack request signature: HMAC-SHA256 over
// "v0:<timestamp>:<raw body>" keyed by the shared signing secret, compared in
// constant time. Fails when the timestamp is outside the freshness window in
// either direction.
func VerifySignature(signingSecret, timestamp, signature string, body []byte) error {
	return verifySignatureAt(signingSecret, timestamp, signature, body, time.Now())
}

func verifySignatureAt(signingSecret, timestamp, signature string, body []byte, now time.Time) error {
	if signingSecret == "" {
		return fmt.Errorf("signing secret is not configured")
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("missing signature headers")
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp")
	}
	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	if age > int64(MaxSignatureAge.Seconds()) {
		return fmt.Errorf("request timestamp outside freshness window")
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "%s:%s:", signatureVersion, timestamp)
	mac.Write(body)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
