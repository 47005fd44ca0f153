// Package cli implements the insights command line.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/logging"
	server "github.com/xiaot623/gogo/insights/internal/transport/http"
	v1 "github.com/xiaot623/gogo/insights/internal/transport/http/v1"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "insights",
		Short: "PPC insights relay",
		Long: `insights forwards advertising campaign data to an assistants API thread,
waits for the assistant run to finish and returns its answer.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.LogLevel = "debug"
			}
			logging.Setup(cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			applyMockFlag(cmd, cfg)
			return runServe(cfg)
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("mock", false, "Use the in-process mock assistants client")

	return rootCmd
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.HTTPPort = port
			}
			applyMockFlag(cmd, cfg)
			return runServe(cfg)
		},
	}
	cmd.Flags().Int("port", 0, "Listen port (overrides PORT)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "insights v%s\n", v1.Version)
		},
	}
}

func applyMockFlag(cmd *cobra.Command, cfg *config.Config) {
	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		cfg.Mode = assistants.ModeMock
	}
}

func runServe(cfg *config.Config) error {
	log.Info().
		Int("port", cfg.HTTPPort).
		Str("store", cfg.StoreDriver).
		Str("base_url", cfg.OpenAIBaseURL).
		Str("assistant_id", cfg.AssistantID).
		Msg("starting insights")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	e := server.NewServer(a.service, a.metrics, cfg.CORSAllowOrigins)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Msg("API started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info().Msg("shutting down insights")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	log.Info().Msg("insights stopped")
	return nil
}
