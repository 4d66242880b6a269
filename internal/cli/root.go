package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	configPath string
	portFlag   int
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config.yaml"
	}
	envPort := 0
	if raw := os.Getenv("PORT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			envPort = n
		}
	}

	cmd := &cobra.Command{
		Use:   "quizleague",
		Short: "Quiz league backend: leagues, scoring and leaderboards",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().IntVar(&portFlag, "port", envPort, "port to listen on (overrides config)")
	cmd.AddCommand(newServeCmd(&configPath, &portFlag))
	cmd.AddCommand(newMigrateCmd(&configPath))
	return cmd
}
