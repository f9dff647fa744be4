package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halverson/readycheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Printf("user config:        %s\n\n", config.GetUserConfigPath())
		fmt.Printf("phases:             %s\n", strings.Join(cfg.Validation.Phases, ", "))
		fmt.Printf("skip optional:      %t\n", cfg.Validation.SkipOptionalChecks)
		fmt.Printf("concurrent users:   %d\n", cfg.Validation.MaxConcurrentUsers)
		fmt.Printf("phase timeout:      %s\n", cfg.Validation.Timeout)
		fmt.Printf("output format:      %s\n", cfg.Validation.OutputFormat)
		fmt.Printf("log level:          %s\n", cfg.Validation.LogLevel)
		fmt.Printf("history enabled:    %t\n", cfg.History.Enabled)
		fmt.Printf("tui refresh rate:   %s\n", cfg.TUI.RefreshRate)
		return nil
	},
}
