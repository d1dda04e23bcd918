// Command code-g is a terminal coding assistant. It connects a chat model
// to a small set of file and shell tools and runs an interactive session in
// the current directory.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/truls27a/code-g/chatclient"
	"github.com/truls27a/code-g/session"
	"github.com/truls27a/code-g/tools"
	"github.com/truls27a/code-g/tui"
)

var (
	flagProvider  string
	flagModel     string
	flagMaxRounds int
	flagReadOnly  bool
	flagYolo      bool
)

func main() {
	root := &cobra.Command{
		Use:   "code-g",
		Short: "A coding assistant in your terminal",
		Long: "code-g connects a chat model to file and shell tools and runs an\n" +
			"interactive coding session rooted in the current directory.",
		SilenceUsage: true,
		RunE:         run,
	}

	root.Flags().StringVar(&flagProvider, "provider", "openai", "model provider: openai, anthropic, or gollm")
	root.Flags().StringVar(&flagModel, "model", "", "model identifier (defaults per provider)")
	root.Flags().IntVar(&flagMaxRounds, "max-rounds", 0, "tool rounds allowed per request (default 10)")
	root.Flags().BoolVar(&flagReadOnly, "read-only", false, "only allow tools that cannot modify anything")
	root.Flags().BoolVar(&flagYolo, "yolo", false, "skip approval prompts for mutating tools")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// A missing .env is fine; the environment may carry the keys directly.
	_ = godotenv.Load()

	client, model, err := buildClient(flagProvider, flagModel)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	toolCfg := tools.Config{Root: cwd, Tracker: tools.NewChangeTracker()}
	toolSet := tools.AllTools(toolCfg)
	if flagReadOnly {
		toolSet = tools.ReadOnlyTools(toolCfg)
	}
	registry, err := tools.NewRegistryWith(toolSet...)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := tui.New(os.Stdin, os.Stdout)
	sess := session.New(client, registry, handler, session.Config{
		Model:       model,
		MaxRounds:   flagMaxRounds,
		AutoApprove: flagYolo,
	})

	if err := sess.Run(ctx); err != nil {
		return err
	}

	if summary := toolCfg.Tracker.Summary(); summary != "No files were changed." {
		fmt.Println()
		fmt.Println(summary)
	}
	return nil
}

func buildClient(provider, model string) (chatclient.ChatClient, string, error) {
	switch provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is not set")
		}
		if model == "" {
			model = "gpt-4o"
		}
		return chatclient.NewOpenAIClient(key), model, nil

	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return chatclient.NewAnthropicClient(key), model, nil

	case "gollm":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is not set")
		}
		if model == "" {
			model = "gpt-4o"
		}
		client, err := chatclient.NewGollmClient("openai", model, key)
		if err != nil {
			return nil, "", fmt.Errorf("build gollm client: %w", err)
		}
		return client, model, nil

	default:
		return nil, "", fmt.Errorf("unknown provider %q (expected openai, anthropic, or gollm)", provider)
	}
}
