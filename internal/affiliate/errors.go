package affiliate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by this package wraps exactly one of
// these so callers can map failures with errors.Is.
var (
	// ErrInput means the caller supplied an unusable request.
	ErrInput = errors.New("invalid input")
	// ErrConfiguration means credentials or settings are missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication means the access-token exchange failed.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUpstream means the provider rejected or failed the search.
	ErrUpstream = errors.New("upstream error")
	// ErrTransport means the provider could not be reached.
	ErrTransport = errors.New("transport error")
)

// ProviderError is an application-level error reported by the provider in an
// otherwise well-formed response, or a non-success HTTP status.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("provider error (status %d): %s: %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Code)
	}
}

// Is reports ProviderError as an ErrUpstream.
func (*ProviderError) Is(target error) bool {
	return target == ErrUpstream
}

// Detail returns the most human-readable description of the error.
func (e *ProviderError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("provider returned status %d", e.Status)
}

// graphQLError is one entry of a GraphQL "errors" array.
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"extensions"`
}

// graphQLErrorsMessage joins the messages of a GraphQL errors array.
func graphQLErrorsMessage(errs []graphQLError) (code, message string) {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		m := e.Message
		if e.Extensions.Message != "" && e.Extensions.Message != m {
			m = strings.TrimSpace(m + " " + e.Extensions.Message)
		}
		if m != "" {
			msgs = append(msgs, m)
		}
		if code == "" {
			code = rawScalar(e.Extensions.Code)
		}
	}
	return code, strings.Join(msgs, "; ")
}

// providerErrorField interprets an "error" field. The provider encodes it as
// an error code string, a numeric code, or an object; empty string, zero,
// false and null all mean "no error".
func providerErrorField(raw json.RawMessage) (code, message string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", "", false
	}

	switch raw[0] {
	case 'n', 'f':
		return "", "", false
	case '{':
		var obj struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
			Error   string          `json:"error"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", string(raw), true
		}
		code = nonZero(rawScalar(obj.Code))
		if code == "" {
			code = nonZero(obj.Error)
		}
		return code, obj.Message, code != "" || obj.Message != ""
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", string(raw), true
		}
		if len(items) == 0 {
			return "", "", false
		}
		var errs []graphQLError
		if err := json.Unmarshal(raw, &errs); err == nil {
			code, message = graphQLErrorsMessage(errs)
			return code, message, true
		}
		// Bare codes or messages, e.g. ["invalid keyword"] or [10031].
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if v := rawScalar(item); v != "" {
				msgs = append(msgs, v)
			}
		}
		return "", strings.Join(msgs, "; "), true
	default:
		v := nonZero(rawScalar(raw))
		if v == "" {
			return "", "", false
		}
		return v, "", true
	}
}

// nonZero maps the provider's "no error" scalars to "".
func nonZero(v string) string {
	switch v {
	case "0", "false":
		return ""
	}
	return v
}

func rawScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
