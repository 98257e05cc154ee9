package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/config"
)

// signature is what the sign subcommands print.
type signature struct {
	Kind          string `json:"kind"`
	AppID         string `json:"app_id"`
	Path          string `json:"path,omitempty"`
	Timestamp     string `json:"timestamp"`
	Signature     string `json:"signature"`
	Authorization string `json:"authorization,omitempty"`
}

func signCmd() *cobra.Command {
	var ts int64

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute provider request signatures offline",
		Long: "Computes the signature the server would send for a provider call,\n" +
			"using the configured credentials. Useful for comparing against the\n" +
			"provider's documentation or reproducing a rejected request.",
	}
	cmd.PersistentFlags().Int64Var(&ts, "timestamp", 0, "Unix timestamp to sign (now when 0)")

	timestamp := func() string {
		if ts > 0 {
			return strconv.FormatInt(ts, 10)
		}
		return affiliate.Timestamp(time.Now())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "token",
		Short: "Sign an access-token exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := loadCredentials()
			if err != nil {
				return err
			}
			t := timestamp()
			return printSignature(cmd.OutOrStdout(), signature{
				Kind:      "token",
				AppID:     creds.AppID,
				Path:      affiliate.TokenPath,
				Timestamp: t,
				Signature: affiliate.TokenSignature(creds, affiliate.TokenPath, t),
			})
		},
	})

	var accessToken string
	searchSign := &cobra.Command{
		Use:   "search",
		Short: "Sign a REST product search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := loadCredentials()
			if err != nil {
				return err
			}
			t := timestamp()
			return printSignature(cmd.OutOrStdout(), signature{
				Kind:      "search",
				AppID:     creds.AppID,
				Path:      affiliate.ProductSearchPath,
				Timestamp: t,
				Signature: affiliate.SearchSignature(creds, affiliate.ProductSearchPath, t, accessToken),
			})
		},
	}
	searchSign.Flags().StringVar(&accessToken, "access-token", "", "access token to sign with")
	cobra.CheckErr(searchSign.MarkFlagRequired("access-token"))
	cmd.AddCommand(searchSign)

	var body string
	graphQLSign := &cobra.Command{
		Use:     "graphql",
		Short:   "Sign a GraphQL request body",
		Example: `  kompara sign graphql --body '{"query":"...","variables":{"keyword":"fralda"}}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := loadCredentials()
			if err != nil {
				return err
			}
			t := timestamp()
			sig := affiliate.GraphQLSignature(creds, t, []byte(body))
			return printSignature(cmd.OutOrStdout(), signature{
				Kind:          "graphql",
				AppID:         creds.AppID,
				Path:          affiliate.GraphQLPath,
				Timestamp:     t,
				Signature:     sig,
				Authorization: affiliate.AuthorizationHeader(creds.AppID, t, sig),
			})
		},
	}
	graphQLSign.Flags().StringVar(&body, "body", "", "exact request body bytes")
	cobra.CheckErr(graphQLSign.MarkFlagRequired("body"))
	cmd.AddCommand(graphQLSign)

	return cmd
}

func loadCredentials() (affiliate.Credentials, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return affiliate.Credentials{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg.Provider.ResolveCredentials(affiliate.EnvSource{})
}

func printSignature(w io.Writer, s signature) error {
	if jsonOutput() {
		return outputJSON(w, s)
	}
	tw := newTabWriter(w)
	tw.writef("Kind:\t%s\n", s.Kind)
	tw.writef("App ID:\t%s\n", s.AppID)
	tw.writef("Path:\t%s\n", s.Path)
	tw.writef("Timestamp:\t%s\n", s.Timestamp)
	tw.writef("Signature:\t%s\n", s.Signature)
	if s.Authorization != "" {
		tw.writef("Authorization:\t%s\n", s.Authorization)
	}
	return tw.finish()
}
