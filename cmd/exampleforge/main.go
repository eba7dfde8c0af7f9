// Command exampleforge is the CLI entry point for the generator: `generate`
// drives one Generation Context end to end, `validate-config` checks a
// project spec without spending an LLM call. Grounded on the teacher's
// cmd/nerd/main.go root-command/persistent-flags/zap-lifecycle pattern
// (zap built once in PersistentPreRunE, synced in PersistentPostRun),
// trimmed to this spec's non-interactive `generate`/`validate-config`
// surface (spec §1's CLI non-goal excludes an interactive scaffolding
// wizard; this is a static command pair).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exampleforge/exampleforge/internal/agent"
	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/llm"
	"github.com/exampleforge/exampleforge/internal/llm/cache"
	"github.com/exampleforge/exampleforge/internal/logging"
	"github.com/exampleforge/exampleforge/internal/orchestrator"
	"github.com/exampleforge/exampleforge/internal/prompt"
)

// Exit codes for the orchestrator-as-CLI contract (spec §4.8 / §12): 0
// success, 2 configuration error, 3 LLM/adapter error, 4 validation failure
// after retries exhausted, 5 cancelled, >=64 internal error (sysexits-style
// reserved range for anything not otherwise classified).
const (
	exitOK             = 0
	exitConfigError    = 2
	exitAdapterError   = 3
	exitValidationFail = 4
	exitCancelled      = 5
	exitInternal       = 64
)

// exitCode classifies a command error into the exit-code contract above by
// walking the sum-typed errors already available at each layer, rather than
// collapsing every failure to exit code 1.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cerr *config.ConfigError
	if errors.As(err, &cerr) {
		return exitConfigError
	}

	var aerr *agent.AgentError
	if errors.As(err, &aerr) {
		if aerr.Kind == agent.ErrKindCancelled {
			return exitCancelled
		}
		return exitAdapterError
	}

	var lerr *llm.Error
	if errors.As(err, &lerr) {
		return exitAdapterError
	}

	var verr *orchestrator.ValidationFailedError
	if errors.As(err, &verr) {
		return exitValidationFail
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return exitCancelled
	}

	return exitInternal
}

var (
	flagConfigPath string
	flagProvider   string
	flagModel      string
	flagCachePath  string
	flagVerbose    bool
	flagLogLevel   string

	log *zap.Logger
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		// Config errors are already rendered by renderConfigError at the
		// point of failure; anything else still needs surfacing here.
		var cerr *config.ConfigError
		if !errors.As(err, &cerr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "exampleforge",
		Short:         "Generate extractor code from input/output examples",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			log, err = logging.New(logging.Config{Development: flagVerbose, Level: flagLogLevel})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to the project spec YAML file (required)")
	root.PersistentFlags().StringVar(&flagProvider, "provider", "anthropic", "LLM provider: anthropic | openai | gemini")
	root.PersistentFlags().StringVar(&flagModel, "model", "", "override the model name from the project spec's runtime block")
	root.PersistentFlags().StringVar(&flagCachePath, "cache", "exampleforge.db", "path to the sqlite completion cache / run history store")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "human-readable console logging instead of JSON")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "debug | info | warn | error")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateConfigCmd())
	return root
}

func loadSpec() (*config.ProjectSpec, error) {
	data, err := os.ReadFile(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	spec, err := config.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return spec, nil
}

func newValidateConfigCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Parse and validate a project spec without invoking the LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return watchConfig(flagConfigPath)
			}
			spec, err := loadSpec()
			if err != nil {
				fmt.Fprintln(os.Stderr, renderConfigError(err))
				return err
			}
			fmt.Println(renderConfigOK(spec))
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-validate on every save and keep running until interrupted")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the Generator Orchestrator for a project spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec()
			if err != nil {
				fmt.Fprintln(os.Stderr, renderConfigError(err))
				return err
			}

			provider, err := buildProvider(cmd.Context(), spec)
			if err != nil {
				return err
			}

			store, err := cache.Open(flagCachePath)
			if err != nil {
				return fmt.Errorf("open cache store: %w", err)
			}
			defer store.Close()

			gw := llm.NewGateway(provider, llm.Config{
				MaxRetries: defaultRetries(spec),
				Cache:      store,
			}, logging.Named(log, "llm"))

			a := agent.New(gw, prompt.NewBuilder(prompt.DefaultBudget()), logging.Named(log, "agent"))
			o := orchestrator.New(a, store, logging.Named(log, "orchestrator"))

			ctx, cancel := runTimeoutContext(cmd.Context(), spec)
			defer cancel()

			result := o.Run(ctx, spec)
			fmt.Println(renderRunResult(result))
			if result.State != orchestrator.StateValidated {
				if result.FatalError != nil {
					return fmt.Errorf("generation did not reach VALIDATED (state=%s): %w", result.State, result.FatalError)
				}
				return fmt.Errorf("generation did not reach VALIDATED (state=%s)", result.State)
			}
			return nil
		},
	}
}

func defaultRetries(spec *config.ProjectSpec) int {
	if spec.Runtime != nil && spec.Runtime.MaxRetries > 0 {
		return spec.Runtime.MaxRetries
	}
	return llm.DefaultConfig().MaxRetries
}

func runTimeoutContext(parent context.Context, spec *config.ProjectSpec) (context.Context, context.CancelFunc) {
	if spec.Runtime == nil || spec.Runtime.RunTimeoutSec <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(spec.Runtime.RunTimeoutSec)*time.Second)
}

func buildProvider(ctx context.Context, spec *config.ProjectSpec) (llm.Provider, error) {
	model := flagModel
	if model == "" && spec.Runtime != nil {
		model = spec.Runtime.Model
	}

	switch flagProvider {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return llm.NewAnthropicProvider(key, model), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return llm.NewOpenAIProvider(key, model), nil
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return llm.NewGeminiProvider(ctx, key, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", flagProvider)
	}
}
