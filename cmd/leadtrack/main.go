package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/startup"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "leadtrack",
	Short:         "Lead intake and tracking beacon API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// serveCmd runs the HTTP API until SIGINT or SIGTERM
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lead API server",
	RunE:  runServe,
}

// hashPasswordCmd prints a bcrypt hash for ADMIN_PASSWORD_HASH
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash an admin password for ADMIN_PASSWORD_HASH",
	Long: `Hash an admin password with bcrypt.

The password is read from the first argument, or from stdin when no
argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

var tokenTTL time.Duration

// tokenCmd mints an admin bearer token from JWT_SECRET
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := security.GenerateAdminToken(config.JWTSecret, tokenTTL, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var secretLength int

var genSecretCmd = &cobra.Command{
	Use:   "gen-secret",
	Short: "Generate a random value for JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := security.GenerateSecureKey(secretLength)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.Version)
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", config.AdminTokenTTL, "token lifetime")
	genSecretCmd.Flags().IntVar(&secretLength, "length", 32, "number of random bytes")

	rootCmd.AddCommand(serveCmd, hashPasswordCmd, tokenCmd, genSecretCmd, versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := startup.Initialize(); err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}
	log.Println("Application has shut down gracefully.")
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
