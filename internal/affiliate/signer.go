package affiliate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Sign returns the lowercase hex HMAC-SHA256 of the fields concatenated
// without separators, keyed with secret.
func Sign(secret string, fields ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, f := range fields {
		mac.Write([]byte(f))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches Sign(secret, fields...), using a
// constant-time comparison.
func Verify(secret, signature string, fields ...string) bool {
	expected := Sign(secret, fields...)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// TokenSignature signs an access-token exchange: appId + path + timestamp.
func TokenSignature(c Credentials, path, timestamp string) string {
	return Sign(c.Secret, c.AppID, path, timestamp)
}

// SearchSignature signs a REST product search:
// appId + path + timestamp + accessToken.
func SearchSignature(c Credentials, path, timestamp, accessToken string) string {
	return Sign(c.Secret, c.AppID, path, timestamp, accessToken)
}

// GraphQLSignature signs a GraphQL call: appId + timestamp + body + secret.
// body must be the exact bytes that are transmitted.
func GraphQLSignature(c Credentials, timestamp string, body []byte) string {
	return Sign(c.Secret, c.AppID, timestamp, string(body), c.Secret)
}

// AuthorizationHeader formats the GraphQL Authorization header value.
func AuthorizationHeader(appID, timestamp, signature string) string {
	return fmt.Sprintf(
		"SHA256 Credential=%s, Timestamp=%s, Signature=%s",
		appID, timestamp, signature,
	)
}

// Timestamp formats t as Unix seconds, the provider's timestamp format.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
