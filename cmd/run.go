// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/agent"
	"github.com/TechNavii/computer-use-demo/internal/browser"
	"github.com/TechNavii/computer-use-demo/internal/config"
	"github.com/TechNavii/computer-use-demo/internal/llmclient"
	"github.com/TechNavii/computer-use-demo/internal/observability"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Runs one browser task described in natural language",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// the config file and environment.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.max_turns", cmd.Flags().Lookup("max-turns")); err != nil {
				return err
			}
			return viper.BindPFlag("agent.start_url", cmd.Flags().Lookup("url"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to finalize config: %w", err)
			}

			instruction := strings.Join(args, " ")
			logger.Info("Starting browser task.",
				zap.String("instruction", instruction),
				zap.String("model", cfg.Agent.Model),
				zap.Bool("headless", cfg.Browser.Headless),
				zap.Int("max_turns", cfg.Agent.MaxTurns),
			)

			client, err := llmclient.NewGeminiClient(cfg.Agent, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize reasoning client: %w", err)
			}

			manager := browser.NewManager(*cfg)
			if err := manager.Start(ctx); err != nil {
				return err
			}
			defer manager.Shutdown()

			page, err := manager.Page()
			if err != nil {
				return err
			}

			loop := agent.NewLoop(client, page, cfg.Agent, logger)
			result, err := loop.Run(ctx, instruction)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Task aborted.", zap.Error(err))
					return fmt.Errorf("task aborted by user signal")
				}
				return err
			}

			printResult(cmd, result)
			if result.Status == schemas.TaskFailed {
				return fmt.Errorf("task %s failed: %s", result.TaskID, result.Failure.Error())
			}
			return nil
		},
	}

	runCmd.Flags().Bool("headless", false, "Run the browser without a visible window. (Overrides config/env)")
	runCmd.Flags().Int("max-turns", 0, "Maximum model turns before giving up. (Overrides config/env)")
	runCmd.Flags().String("url", "", "Start URL loaded before the first turn. (Overrides config/env)")

	return runCmd
}

func printResult(cmd *cobra.Command, result *schemas.TaskResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTask %s finished: %s (%d turns)\n", result.TaskID, result.Status, result.Turns)
	if result.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", result.Summary)
	}
	if result.Failure != nil {
		fmt.Fprintf(out, "Failure: %s\n", result.Failure.Error())
	}
}
