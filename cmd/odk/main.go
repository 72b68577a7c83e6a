// Package main implements the odk command line tool, a thin console
// around the go-odk-central client library for working with an ODK
// Central server from scripts and terminals.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	central "github.com/sofatutor/go-odk-central"
	"github.com/sofatutor/go-odk-central/config"
	"github.com/sofatutor/go-odk-central/internal/logging"
)

var (
	version = "0.1.0"

	configPath string
	cachePath  string
	projectID  int
	logLevel   string
	logFormat  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "odk",
	Short:         "Interact with an ODK Central server",
	Long:          `Manage projects, forms and submissions on an ODK Central server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		var err error
		logger, err = logging.NewLogger(logLevel, logFormat)
		return err
	},
}

// newClient builds a client from the global flags.
func newClient() (*central.Client, error) {
	opts := []central.Option{
		central.WithConfigPath(configPath),
		central.WithCachePath(cachePath),
		central.WithLogger(logger),
	}
	if projectID > 0 {
		opts = append(opts, central.WithProjectID(projectID))
	}
	return central.New(opts...)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and cache the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		expiresAt, err := client.Login(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Signed in to %s, session valid until %s\n", client.BaseURL(), expiresAt.Format(time.RFC3339))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the cached session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Close(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ~/"+config.DefaultConfigName+")")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Path to the session cache file (default ~/"+config.DefaultCacheName+")")
	rootCmd.PersistentFlags().IntVar(&projectID, "project", 0, "Project id (overrides the configured default)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (json, console)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(formsCmd)
	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(entitiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
