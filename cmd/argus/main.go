// cmd/argus/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"argus/internal/platform/config"
	"argus/internal/platform/logx"

	// Collectors se registran vía init()
	_ "argus/internal/collectors/archive"
	_ "argus/internal/collectors/certs"
	_ "argus/internal/collectors/domaininfo"
	_ "argus/internal/collectors/emailcheck"
	_ "argus/internal/collectors/geo"
	_ "argus/internal/collectors/ipinfo"
	_ "argus/internal/collectors/social"
	_ "argus/internal/collectors/web"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "argus",
	Short: "OSINT collection orchestration and entity resolution",
	Long: `Argus routes a target (domain, URL, email, IP, username, phone,
coordinates) to the matching collectors, runs them in parallel and merges
what they find into a deduplicated set of entities and relationships.

` + config.EnvHelp(config.DefaultConfig()),
	Example:       config.ExamplesText,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup carga la configuración por capas y crea el logger compartido.
func setup(cmd *cobra.Command) (config.Config, logx.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return cfg, nil, fmt.Errorf("configuration load failed: %w", err)
	}
	return cfg, logx.NewWithLevel(logx.ParseLevel(cfg.LogLevel)), nil
}

// signalContext se cancela con SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
