package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "followctl",
	Short: "followctl manages leads and AI follow-ups on a FollowWise server",
	Long: `followctl is the command-line interface for FollowWise.

Common workflows:

  Add a lead:
    followctl leads create --name "Ana Souza" --email ana@example.com --company Acme

  Generate follow-up suggestions and send one:
    followctl followups generate <lead-id> --tone polite
    followctl followups send <lead-id> 0

  Review what went out:
    followctl sent --lead <lead-id>

  Pipeline metrics:
    followctl analytics --range 90d --period week

Configuration:
  FOLLOWWISE_URL    API endpoint (default: http://localhost:8080)
  or a config file at $HOME/.followctl.yaml with a "url" key.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".followctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FOLLOWWISE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.followctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "FollowWise API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}

func newClient() *FollowClient {
	return NewFollowClient(viper.GetString("url"))
}
