package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sofatutor/go-odk-central/config"
	"github.com/sofatutor/go-odk-central/session"
)

var (
	setupBaseURL   string
	setupUsername  string
	setupPassword  string
	setupProjectID int
	interactive    bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write the ODK Central connection config",
	Long:  `Configure the server URL and credentials used by all other commands.`,
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	if interactive {
		return runInteractiveSetup()
	}
	return runNonInteractiveSetup()
}

func runInteractiveSetup() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("ODK Central Interactive Setup")
	fmt.Println("=============================")

	// Load existing config if present, for prompt hints.
	path, err := config.ConfigPath(configPath)
	if err != nil {
		return err
	}
	existing := config.Central{}
	if cfg, err := config.Load(path); err == nil {
		existing = cfg.Central
	}

	fmt.Printf("Configuration file path [%s]: ", path)
	input, _ := reader.ReadString('\n')
	if input = strings.TrimSpace(input); input != "" {
		path = input
	}

	urlHint := ""
	if existing.BaseURL != "" {
		urlHint = fmt.Sprintf(" [%s]", existing.BaseURL)
	}
	if setupBaseURL == "" {
		fmt.Printf("Server URL%s: ", urlHint)
		input, _ := reader.ReadString('\n')
		setupBaseURL = strings.TrimSpace(input)
		if setupBaseURL == "" {
			setupBaseURL = existing.BaseURL
		}
	}

	userHint := ""
	if existing.Username != "" {
		userHint = fmt.Sprintf(" [%s]", existing.Username)
	}
	if setupUsername == "" {
		fmt.Printf("Username (email)%s: ", userHint)
		input, _ := reader.ReadString('\n')
		setupUsername = strings.TrimSpace(input)
		if setupUsername == "" {
			setupUsername = existing.Username
		}
	}

	passwordHint := ""
	if existing.Password != "" {
		passwordHint = fmt.Sprintf(" [%s]", session.Redact(existing.Password))
	}
	if setupPassword == "" {
		fmt.Printf("Password%s: ", passwordHint)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			secret, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			setupPassword = strings.TrimSpace(string(secret))
		} else {
			input, _ := reader.ReadString('\n')
			setupPassword = strings.TrimSpace(input)
		}
		if setupPassword == "" {
			setupPassword = existing.Password
		}
	}

	if setupProjectID == 0 {
		projectHint := ""
		if existing.DefaultProjectID > 0 {
			projectHint = fmt.Sprintf(" [%d]", existing.DefaultProjectID)
		}
		fmt.Printf("Default project id (optional)%s: ", projectHint)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			setupProjectID = existing.DefaultProjectID
		} else if id, err := strconv.Atoi(input); err == nil {
			setupProjectID = id
		} else {
			fmt.Println("Invalid project id. Leaving it unset.")
		}
	}

	return writeSetupConfig(path)
}

func runNonInteractiveSetup() error {
	if setupBaseURL == "" || setupUsername == "" || setupPassword == "" {
		fmt.Println("Error: --url, --username and --password are required")
		fmt.Println("Or run with --interactive")
		os.Exit(1)
	}
	path, err := config.ConfigPath(configPath)
	if err != nil {
		return err
	}
	return writeSetupConfig(path)
}

func writeSetupConfig(path string) error {
	cfg := &config.Config{Central: config.Central{
		BaseURL:          setupBaseURL,
		Username:         setupUsername,
		Password:         setupPassword,
		DefaultProjectID: setupProjectID,
	}}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Write(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func init() {
	setupCmd.Flags().StringVar(&setupBaseURL, "url", "", "ODK Central server URL")
	setupCmd.Flags().StringVar(&setupUsername, "username", "", "Web user email address")
	setupCmd.Flags().StringVar(&setupPassword, "password", "", "Web user password")
	setupCmd.Flags().IntVar(&setupProjectID, "default-project", 0, "Default project id")
	setupCmd.Flags().BoolVar(&interactive, "interactive", false, "Run interactive setup")
}
