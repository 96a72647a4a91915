// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/policy-hypervisor/agent"
	"github.com/sage-x-project/policy-hypervisor/api"
	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/config"
	"github.com/sage-x-project/policy-hypervisor/health"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
	"github.com/sage-x-project/policy-hypervisor/internal/metrics"
	"github.com/sage-x-project/policy-hypervisor/llm"
	"github.com/sage-x-project/policy-hypervisor/policy"
	"github.com/sage-x-project/policy-hypervisor/session"
	"github.com/sage-x-project/policy-hypervisor/tool"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hypervisor HTTP service",
	Long: `serve loads configuration from --config (or ./hypervisor.toml, or
built-in defaults), wires the session registry, compliance engine, tool
catalog, LLM provider, and TEE quote provider into the agent pipeline,
and listens until an interrupt or SIGTERM requests a graceful shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to hypervisor.toml (default: ./hypervisor.toml, or built-in defaults)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{Path: serveConfigPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewLogger(os.Stdout, parseLogLevel(cfg.LogLevel))
	log.Info("starting hypervisor",
		logger.String("listening", cfg.Listening),
		logger.String("metrics_addr", cfg.MetricsAddr),
		logger.Bool("require_operator_token", cfg.RequireOperatorToken),
	)

	operatorToken := os.Getenv("HYPERVISOR_OPERATOR_TOKEN")
	if cfg.RequireOperatorToken && operatorToken == "" {
		return fmt.Errorf("require_operator_token is set but HYPERVISOR_OPERATOR_TOKEN is empty")
	}

	toolRegistry := tool.NewRegistry()
	if err := tool.RegisterDefaultTools(toolRegistry); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	policies := policy.DefaultCryptoPolicy()
	checker := policy.DefaultCryptoPolicyChecker()

	llmProvider := llm.NewOpenAIProvider(
		llm.WithAPIKey(cfg.OpenAIAPIKey),
		llm.WithTimeout(2*time.Minute),
	)

	quoteProvider := attest.Default()

	agentPipeline := agent.New(agent.DefaultConfig(), toolRegistry, checker, llmProvider, quoteProvider)

	healthChecker := health.NewHealthChecker(5 * time.Second)
	healthChecker.SetLogger(log)
	healthChecker.RegisterCheck("openai", health.OpenAIHealthCheck(func(ctx context.Context) error {
		_, err := llmProvider.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: "ping"}})
		return err
	}))
	healthChecker.RegisterCheck("attestation", health.AttestationProviderHealthCheck(func(ctx context.Context) error {
		var report [attest.ReportDataLen]byte
		_, err := quoteProvider.GetQuote(ctx, report)
		return err
	}))

	server := &api.Server{
		Sessions:      session.NewRegistry(),
		Policies:      policies,
		Checker:       checker,
		Tools:         toolRegistry,
		Agent:         agentPipeline,
		LLM:           llmProvider,
		QuoteProvider: quoteProvider,
		Health:        healthChecker,
		Log:           log,
		OperatorToken: operatorToken,
	}

	httpServer := &http.Server{
		Addr:              cfg.Listening,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", logger.String("addr", cfg.MetricsAddr))
		if err := metrics.StartServer(cfg.MetricsAddr); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", logger.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", cfg.Listening))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigChan:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("hypervisor stopped")
	return nil
}

// parseLogLevel maps a config log_level string to a logger.Level,
// defaulting to Info on an unrecognized value.
func parseLogLevel(level string) logger.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
