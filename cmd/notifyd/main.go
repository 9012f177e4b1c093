// Package main runs the notification channel client headless.
//
// notifyd keeps the notification socket open, registers the push client id
// and prints alerts through the structured logger. It reads host messages
// from stdin, one per line:
//
//	{"type":"minechat-token","token":"..."}   apply a credential
//	foreground | background                   app lifecycle
//	network                                   network restored
//	status                                    log the channel status
//	log                                       dump the in-memory debug log
//
// # Usage
//
//	notifyd run --config notifyd.yaml
//	notifyd run --token "$TOKEN"
//	notifyd config --config notifyd.yaml
//	notifyd register --token "$TOKEN" --client-id cid
//
// Without --config the configuration comes from NOTIFY_* environment
// variables and an optional .env file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "notifyd",
		Short:         "Notification channel client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file (defaults to environment variables)")

	root.AddCommand(
		buildRunCmd(&configPath),
		buildConfigCmd(&configPath),
		buildRegisterCmd(&configPath),
	)
	return root
}
