package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cort-sh/cort/cort"
	"github.com/cort-sh/cort/internal/config"
	"github.com/cort-sh/cort/internal/repl"
	"github.com/cort-sh/cort/provider"
)

var (
	flagProvider     string
	flagModel        string
	flagAPIBase      string
	flagOpenRouter   bool
	flagAlternatives int
	flagConfig       string
	flagDebug        bool
)

var rootCmd = &cobra.Command{
	Use:   "cort",
	Short: "Recursive thinking chat",
	Long: `cort wraps a chat-completion backend in a recursive thinking loop:
for every message it generates an initial answer, then runs several rounds in
which alternative answers compete and the model judges which is best.

Starts an interactive shell. Type 'help' inside it for commands.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagProvider, "provider", "", "model backend: openai, claude, deepseek, gemini, local")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "model to use (provider-specific default if empty)")
	rootCmd.Flags().StringVar(&flagAPIBase, "api-base", "", "API base URL for OpenAI-compatible backends")
	rootCmd.Flags().BoolVar(&flagOpenRouter, "openrouter", false, "route through OpenRouter instead of the native API")
	rootCmd.Flags().IntVar(&flagAlternatives, "alternatives", 0, "alternatives generated per thinking round")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "verbose engine logging")
}

func run() error {
	// .env is a convenience for API keys; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagAPIBase != "" {
		cfg.APIBase = flagAPIBase
	}
	if flagOpenRouter {
		cfg.OpenRouter = true
	}
	if flagAlternatives > 0 {
		cfg.Alternatives = flagAlternatives
	}
	if flagDebug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return err
	}

	faint := color.New(color.Faint)
	client, err := provider.New(provider.Options{
		Kind:       cfg.Provider,
		Model:      cfg.Model,
		APIKey:     apiKey,
		APIBase:    cfg.APIBase,
		OpenRouter: cfg.OpenRouter,
		OnChunk: func(chunk string) {
			faint.Fprint(os.Stdout, chunk)
		},
	})
	if err != nil {
		return err
	}

	session := cort.NewSession(client, cort.Config{
		Alternatives: cfg.Alternatives,
		Observability: &cort.ObservabilityConfig{
			Debug:        cfg.Debug,
			TraceEnabled: cfg.TraceEnabled,
		},
	})
	defer session.Shutdown()

	printBanner(cfg, client.Name())

	shell, err := repl.New(&repl.Config{
		Session:      session,
		ResponsesDir: cfg.ResponsesDir,
	})
	if err != nil {
		return err
	}

	return shell.Run(context.Background())
}

// resolveAPIKey enforces the fatal-at-startup credential policy: a missing
// required key stops the process before any turn begins.
func resolveAPIKey(cfg *config.Config) (string, error) {
	envVar := provider.KeyEnvVar(cfg.Provider, cfg.OpenRouter)
	if envVar == "" {
		return "", nil
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", cort.NewConfigError("no API key for provider %q: set %s", cfg.Provider, envVar)
	}
	return key, nil
}

func printBanner(cfg *config.Config, backend string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n", bold("Recursive Thinking Agent"))
	fmt.Printf("Provider: %s", backend)
	if cfg.OpenRouter {
		fmt.Print(" (via OpenRouter)")
	}
	fmt.Println()
	if cfg.Model != "" {
		fmt.Printf("Model: %s\n", cfg.Model)
	}
	fmt.Printf("Alternatives per round: %d\n", cfg.Alternatives)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
