package main

import (
	"fmt"
	"os"

	"github.com/msgpilot/backend/internal/config"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "billingctl",
	Short:   "MsgPilot billing operator tool",
	Long:    `Inspect the plan catalog, build checkout links, check IPN payloads and run the expiry sweep`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "local"
		}
		pkglogger.InitStructured(env)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path")
	rootCmd.AddCommand(plansCmd, checkoutURLCmd, verifyIPNCmd, expireCmd)
}

func defaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
