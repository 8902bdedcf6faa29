package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/micahbf/halp/internal/config"
	"github.com/micahbf/halp/internal/history"
	"github.com/micahbf/halp/internal/llm"
	"github.com/micahbf/halp/internal/output"
	"github.com/micahbf/halp/internal/prompt"
	"github.com/micahbf/halp/internal/response"
	"github.com/micahbf/halp/internal/ui"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	quiet        bool
	explainOnly  bool
	copyFlag     bool
	debug        bool
	providerFlag string
	modelFlag    string
	historyLimit int
	historyClear bool
)

func init() {
	initLogging(slog.LevelWarn)
}

// initLogging routes slog through zerolog's console writer on stderr.
func initLogging(level slog.Level) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(console).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "halp [query]",
		Short: "Ask for a shell command in plain language",
		Long: `halp translates a natural-language request into a single shell command
using an LLM provider (anthropic, openai, or gemini).

The command is written to stdout and the explanation streams to stderr,
so the output can be piped or substituted directly:

  $(halp find the five largest files here)`,
		Version: version,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runQuery,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				initLogging(slog.LevelDebug)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the command, skip the explanation")
	rootCmd.Flags().BoolVarP(&explainOnly, "explain", "e", false, "Print only the explanation, skip the command")
	rootCmd.Flags().BoolVarP(&copyFlag, "copy", "c", false, "Copy the command to the clipboard")
	rootCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "LLM provider to use (anthropic, openai, gemini)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model to use")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "explain")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Set up halp with your preferred provider and model",
		RunE:  runConfigure,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries and the commands they produced",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all history entries")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err.Error())
		os.Exit(1)
	}
}

// firstOutput runs a callback before the first byte of real output, so
// the spinner never shares a line with the command or the explanation.
type firstOutput struct {
	sink   response.Sink
	before func()
}

func (f firstOutput) Command(cmd string) {
	f.before()
	f.sink.Command(cmd)
}

func (f firstOutput) Explanation(fragment string) {
	f.before()
	f.sink.Explanation(fragment)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	query := strings.Join(args, " ")

	cfg, err := config.Resolve(config.Overrides{Provider: providerFlag, Model: modelFlag})
	if err != nil {
		return err
	}

	system, err := prompt.BuildSystem(cfg.SystemPrompt)
	if err != nil {
		return err
	}

	provider, err := llm.New(cfg.Provider, llm.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.APIBaseURL,
	})
	if err != nil {
		return err
	}

	slog.Debug("requesting command", "provider", cfg.Provider, "model", cfg.Model, "query", query)

	spin := ui.NewSpinner("thinking...")
	spin.Start()
	defer spin.Stop()

	stream, err := provider.StreamCompletion(ctx, system, query)
	if err != nil {
		spin.Stop()
		return err
	}
	defer stream.Close()

	var explOut *output.Streamer
	var sink response.Sink
	switch {
	case quiet:
		sink = output.NewDual(os.Stdout, io.Discard)
	case explainOnly:
		explOut = output.NewStreamer(os.Stdout, false, nil)
		sink = output.NewDual(io.Discard, explOut)
	default:
		explOut = output.NewStreamer(os.Stderr, ui.IsTerminal(os.Stderr), nil)
		sink = output.NewDual(os.Stdout, explOut)
	}

	result, err := response.Run(stream, firstOutput{sink: sink, before: spin.Stop})
	spin.Stop()
	if explOut != nil {
		explOut.Finish()
	}
	if err != nil {
		return err
	}

	if copyFlag {
		if err := clipboard.WriteAll(result.Command); err != nil {
			ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		} else if !quiet {
			ui.ShowSuccess("Copied to clipboard")
		}
	}

	if err := recordHistory(ctx, cfg, query, result.Command); err != nil {
		slog.Debug("failed to record history", "error", err)
	}

	return nil
}

// recordHistory saves a successful translation. Failures here never fail
// the run; the command has already been delivered.
func recordHistory(ctx context.Context, cfg *config.Config, query, command string) error {
	store, err := history.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Record(ctx, history.Entry{
		Query:    query,
		Command:  command,
		Provider: cfg.Provider,
		Model:    cfg.Model,
	})
}

func runConfigure(cmd *cobra.Command, args []string) error {
	if !config.Exists() {
		ui.ShowInfo("No configuration found. Let's set up halp.\n")
	}

	file, err := config.LoadFile()
	if err != nil {
		return err
	}

	providerName, err := ui.AskProvider(llm.Providers(), file.Provider)
	if err != nil {
		return err
	}

	modelDefault := config.DefaultModel(providerName)
	if file.Provider == providerName && file.Model != "" {
		modelDefault = file.Model
	}
	model, err := ui.AskModel(modelDefault)
	if err != nil {
		return err
	}

	apiKey, err := ui.AskAPIKey(config.KeyEnvVar(providerName))
	if err != nil {
		return err
	}

	baseURL, err := ui.AskBaseURL(file.APIBaseURL)
	if err != nil {
		return err
	}

	file.Provider = providerName
	file.Model = model
	if apiKey != "" {
		file.APIKey = apiKey
	}
	file.APIBaseURL = baseURL

	if err := config.Save(file); err != nil {
		return err
	}

	ui.ShowSuccess("Configuration saved to " + config.Path())
	ui.ShowInfo("\nTry: halp \"list files modified in the last hour\"")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	if historyClear {
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		ui.ShowSuccess("History cleared")
		return nil
	}

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		ui.ShowInfo("No history yet. Ask for something first: halp \"find large files\"")
		return nil
	}

	faint := color.New(color.Faint)
	cyan := color.New(color.FgCyan, color.Bold)
	for _, e := range entries {
		faint.Printf("%s · %s/%s\n", formatAge(e.Timestamp), e.Provider, e.Model)
		fmt.Printf("  %s\n", e.Query)
		cyan.Printf("  $ %s\n\n", e.Command)
	}

	return nil
}

// formatAge renders a timestamp as a relative age like "3 hours ago"
func formatAge(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
