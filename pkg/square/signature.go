package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader is the header Square sets on webhook deliveries.
const SignatureHeader = "x-square-hmacsha256-signature"

// VerifySignature checks a Square webhook signature. Square signs the
// concatenation of the notification URL and the raw request body with
// HMAC-SHA256 and base64-encodes the digest.
func VerifySignature(signatureKey, notificationURL string, body []byte, signature string) bool {
	if signatureKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a delivery against the client's configured
// signature key and notification URL.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifySignature(c.signatureKey, c.webhookURL, body, signature)
}
