package affiliate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantCode string
		wantMsg  string
	}{
		{name: "absent", raw: ``},
		{name: "null", raw: `null`},
		{name: "false", raw: `false`},
		{name: "empty string", raw: `""`},
		{name: "zero", raw: `0`},
		{name: "string code", raw: `"error_auth"`, wantOK: true, wantCode: "error_auth"},
		{name: "numeric code", raw: `10020`, wantOK: true, wantCode: "10020"},
		{
			name:     "object with numeric code",
			raw:      `{"code":10030,"message":"rate limit"}`,
			wantOK:   true,
			wantCode: "10030",
			wantMsg:  "rate limit",
		},
		{
			name:     "object with error key",
			raw:      `{"error":"error_param","message":"bad"}`,
			wantOK:   true,
			wantCode: "error_param",
			wantMsg:  "bad",
		},
		{name: "zero object", raw: `{"code":0,"message":""}`},
		{name: "object with false error", raw: `{"error":"false"}`},
		{name: "object with zero string code", raw: `{"code":"0"}`},
		{name: "empty object", raw: `{}`},
		{name: "empty array", raw: `[]`},
		{
			name:     "graphql errors array",
			raw:      `[{"message":"a","extensions":{"code":1}},{"message":"b"}]`,
			wantOK:   true,
			wantCode: "1",
			wantMsg:  "a; b",
		},
		{
			name:    "array of messages",
			raw:     `["invalid keyword", "page too large"]`,
			wantOK:  true,
			wantMsg: "invalid keyword; page too large",
		},
		{name: "array of codes", raw: `[10031]`, wantOK: true, wantMsg: "10031"},
		{name: "malformed array", raw: `[1,`, wantOK: true, wantMsg: "[1,"},
		{
			name:    "extension message appended",
			raw:     `[{"message":"Invalid","extensions":{"message":"sign mismatch"}}]`,
			wantOK:  true,
			wantMsg: "Invalid sign mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, msg, ok := providerErrorField(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestRejectsToken(t *testing.T) {
	t.Parallel()

	assert.True(t, rejectsToken(&ProviderError{Status: 401}))
	assert.True(t, rejectsToken(&ProviderError{Status: 200, Code: "error_auth"}))
	assert.True(t, rejectsToken(&ProviderError{Status: 200, Code: "10031", Message: "Invalid Token"}))
	assert.True(t, rejectsToken(&ProviderError{Status: 200, Message: "Invalid access_token"}))
	assert.False(t, rejectsToken(&ProviderError{Status: 200, Code: "error_param", Message: "keywords"}))
	assert.False(t, rejectsToken(&ProviderError{Status: 200, Code: "error_param", Message: "keyword token too long"}))
}
