package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ambiyansyah-risyal/lintas"
)

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	ConfigPath string
	BaseURL    string
	Headers    []string
	Verbose    bool
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "lintas",
	Short: "Talk to an enveloped JSON API from the command line",
	Long: `lintas issues requests through the lintas client: envelope
normalization, error classification and NDJSON streaming behave exactly as
they do in library code.

Settings are read from a TOML or YAML file (--config) and LINTAS_*
environment variables. Flags win over both.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "configuration file (.toml, .yaml)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.BaseURL, "base-url", "", "base URL, overrides the configuration")
	rootCmd.PersistentFlags().StringArrayVarP(&globalFlags.Headers, "header", "H", nil, "extra header as 'Key: Value' (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds a client from the configuration file, the environment and
// the global flags. The returned func releases watchers and connections.
func newClient() (*lintas.Client, func(), error) {
	cfg, err := lintas.LoadConfig(globalFlags.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if globalFlags.BaseURL != "" {
		cfg.BaseURL = globalFlags.BaseURL
	}
	if globalFlags.Verbose {
		cfg.Debug = true
	}

	headers, err := parseHeaders(globalFlags.Headers)
	if err != nil {
		return nil, nil, err
	}

	zl := zap.NewNop()
	if cfg.Debug {
		if zl, err = zap.NewDevelopment(); err != nil {
			return nil, nil, fmt.Errorf("create logger: %w", err)
		}
	}
	logger := lintas.NewZapLogger(zl)

	opts, closer, err := cfg.Options(logger)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, lintas.WithHeaders(headers))

	client := lintas.New(opts...)
	if err := client.ValidationError(); err != nil {
		releaseCredentials(logger, closer)
		return nil, nil, err
	}

	cleanup := func() {
		releaseCredentials(logger, closer)
		_ = zl.Sync()
	}
	return client, cleanup, nil
}

// releaseCredentials stops the token file watcher or closes the Redis client
// opened for the configuration.
func releaseCredentials(logger lintas.Logger, closer func() error) {
	if err := closer(); err != nil {
		logger.Warn("Failed to release credentials", "error", err)
	}
}

func parseHeaders(raw []string) (map[string]string, error) {
	headers := map[string]string{"User-Agent": lintas.UserAgent()}
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", h)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}
