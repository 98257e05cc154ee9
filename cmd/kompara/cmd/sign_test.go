package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

func TestSignCommand(t *testing.T) {
	t.Setenv("SHOPEE_APP_ID", "1830001")
	t.Setenv("SHOPEE_API_KEY", "s3cret")

	creds := affiliate.Credentials{AppID: "1830001", Secret: "s3cret"}
	body := `{"query":"q","variables":{"keyword":"fralda"}}`

	tests := []struct {
		name string
		args []string
		want signature
	}{
		{
			name: "token",
			args: []string{"sign", "token", "--timestamp", "1700000000"},
			want: signature{
				Kind:      "token",
				AppID:     "1830001",
				Path:      affiliate.TokenPath,
				Timestamp: "1700000000",
				Signature: affiliate.TokenSignature(creds, affiliate.TokenPath, "1700000000"),
			},
		},
		{
			name: "search",
			args: []string{"sign", "search", "--timestamp", "1700000000", "--access-token", "tok"},
			want: signature{
				Kind:      "search",
				AppID:     "1830001",
				Path:      affiliate.ProductSearchPath,
				Timestamp: "1700000000",
				Signature: affiliate.SearchSignature(creds, affiliate.ProductSearchPath, "1700000000", "tok"),
			},
		},
		{
			name: "graphql",
			args: []string{"sign", "graphql", "--timestamp", "1700000000", "--body", body},
			want: func() signature {
				sig := affiliate.GraphQLSignature(creds, "1700000000", []byte(body))
				return signature{
					Kind:          "graphql",
					AppID:         "1830001",
					Path:          affiliate.GraphQLPath,
					Timestamp:     "1700000000",
					Signature:     sig,
					Authorization: affiliate.AuthorizationHeader("1830001", "1700000000", sig),
				}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(append(tt.args, "--output", "json"))
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
			})

			require.NoError(t, rootCmd.Execute())

			var got signature
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, out.String(), "s3cret")
		})
	}
}

func TestSignCommand_MissingCredentials(t *testing.T) {
	for _, name := range []string{
		"SHOPEE_APP_ID", "ID_do_aplicativo_da_SHOPEE", "SHOPEE_API_KEY", "CHAVE_API_SHOPEE",
	} {
		t.Setenv(name, "")
	}

	rootCmd.SetArgs([]string{"sign", "token"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.ErrorIs(t, err, affiliate.ErrConfiguration)
}
