// Package cmd implements the kompara CLI commands: the serve command that
// runs the search proxy, and client commands that talk to a running server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/kompara/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "kompara",
		Short: "Affiliate offer search proxy",
		Long: "kompara exposes GET /search?searchTerm=<term> and answers it with\n" +
			"product offers from the Shopee Affiliate Open API, signing every\n" +
			"provider call with the configured credentials.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initClientConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "service config file (defaults and environment when empty)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL for client commands")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(versionCmd())
}

// initClientConfig loads client command settings from $HOME/.kompara.yaml
// and KOMPARA_* environment variables.
func initClientConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".kompara")

	viper.SetEnvPrefix("KOMPARA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using client config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
