package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func buildRunCmd(configPath *string) *cobra.Command {
	var (
		token          string
		debug          bool
		statusInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the notification channel and print alerts",
		Long: `Connect to the notification channel and keep the connection alive.

The client will:
1. Load configuration from --config or the environment
2. Open the credential store (memory, file or redis)
3. Connect the socket when a credential is available
4. Register the push client id unless registration is disabled
5. Read host messages from stdin

Shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListener(cmd.Context(), runOptions{
				configPath:     *configPath,
				token:          token,
				debug:          debug,
				statusInterval: statusInterval,
				stdin:          cmd.InOrStdin(),
			})
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Credential to store before connecting")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().DurationVar(&statusInterval, "status-interval", time.Minute,
		"How often to log the channel status (0 disables)")
	return cmd
}

func buildConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.RegisterSecret != "" {
				cfg.RegisterSecret = "***"
			}
			if cfg.StoreKey != "" {
				cfg.StoreKey = "***"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func buildRegisterCmd(configPath *string) *cobra.Command {
	var token, clientID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a push client id once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return registerOnce(cmd.Context(), *configPath, token, clientID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "Credential (defaults to the stored one)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Push client id (defaults to NOTIFY_CLIENT_ID)")
	return cmd
}
