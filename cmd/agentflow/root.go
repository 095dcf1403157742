package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/assistant"
	"github.com/ashutoshrp06/agentflow/internal/config"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/prompt"
	"github.com/ashutoshrp06/agentflow/internal/ui"
)

var (
	configPath  string
	verbose     bool
	interactive bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "agentflow [task]",
	Short: "LLM agents and workflows from the command line",
	Long: `
  ▄▀█ █▀▀ █▀▀ █▄ █ ▀█▀ █▀▀ █   █▀█ █ █ █
  █▀█ █▄█ ██▄ █ ▀█  █  █▀  █▄▄ █▄█ ▀▄▀▄▀

  Tool-using agents and composed LLM workflows.

Usage:
  agentflow "Add a .gitignore for Go"      Run the coding assistant once
  agentflow --it                          Chat with the coding assistant
  agentflow research "state space models" Research with web and arXiv tools
  agentflow calendar chain "Lunch with Ana on Friday at 1pm"
  agentflow blog "Why Go channels"        Plan, write and review a post
  agentflow tools                         List the available tools`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if interactive {
			return runInteractive(cmd.Context())
		}
		if len(args) > 0 {
			return runCoder(cmd.Context(), strings.Join(args, " "))
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&interactive, "it", false, "Start interactive mode")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(researchCmd, weatherCmd, kbCmd)
	rootCmd.AddCommand(calendarCmd, blogCmd, essayCmd)
	rootCmd.AddCommand(configCmd, toolsCmd, versionCmd)
}

// env carries what every command needs once configuration is loaded.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	deps    assistant.Deps
	out     io.Writer
	json    bool
	styles  ui.Styles
	timeout time.Duration
}

// setup loads configuration, connects to the model endpoint and returns a
// ready env.
func setup(ctx context.Context) (*env, error) {
	if err := config.LoadEnvFiles(".env"); err != nil {
		return nil, failure.Wrap(failure.KindConfiguration, "config.env", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, failure.Wrap(failure.KindConfiguration, "config.load", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, err
	}

	prompts, err := loadPrompts(cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := llm.NewOpenAIGateway(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLMTimeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	if !jsonOutput {
		if err := connect(ctx, gateway, cfg); err != nil {
			return nil, err
		}
	}

	e := newEnv(cfg, logger, gateway, os.Stdout)
	e.deps.Prompts = prompts
	return e, nil
}

func newEnv(cfg *config.Config, logger *zap.Logger, gateway llm.Gateway, out io.Writer) *env {
	return &env{
		cfg:    cfg,
		logger: logger,
		deps: assistant.Deps{
			Config:  cfg,
			Gateway: gateway,
			Prompts: prompt.Default(),
			HTTP:    assistant.NewHTTPClient(cfg, logger),
			Logger:  logger,
		},
		out:     out,
		json:    jsonOutput,
		styles:  ui.DefaultStyles(),
		timeout: 10 * time.Minute,
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(config.SearchPaths()...)
}

func loadPrompts(cfg *config.Config) (*prompt.Catalogue, error) {
	if cfg.Prompts.Path == "" {
		return prompt.Default(), nil
	}
	p, err := prompt.Load(cfg.Prompts.Path)
	if err != nil {
		return nil, failure.Wrap(failure.KindConfiguration, "prompt.load", err)
	}
	return p, nil
}

// createLogger builds a development logger under --verbose and a
// production logger otherwise. log.file adds a file sink.
func createLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Log.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.Log.File)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// connect checks that the endpoint answers before running anything.
func connect(ctx context.Context, gateway *llm.OpenAIGateway, cfg *config.Config) error {
	styles := ui.DefaultStyles()

	fmt.Print(styles.StatusText.Render("Connecting to " + gateway.ModelInfo() + "... "))
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := gateway.Ping(pingCtx); err != nil {
		fmt.Println(styles.Failed.Render("✗"))
		fmt.Println()
		printConnectionHelp(cfg)
		return err
	}
	fmt.Println(styles.Passed.Render("✓"))
	return nil
}

func (e *env) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, e.timeout)
}

// emit prints v as indented JSON with --json, otherwise calls human.
func (e *env) emit(v any, human func()) error {
	if !e.json {
		human()
		return nil
	}
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) heading(s string) {
	fmt.Fprintln(e.out, e.styles.Heading.Render(s))
}

func (e *env) field(label, value string) {
	fmt.Fprintf(e.out, "%s %s\n", e.styles.Label.Render(label+":"), e.styles.Body.Render(value))
}

func (e *env) text(s string) {
	fmt.Fprintln(e.out, e.styles.Body.Render(s))
}

func (e *env) status(ok bool, s string) {
	if ok {
		fmt.Fprintln(e.out, e.styles.Passed.Render("✓ "+s))
		return
	}
	fmt.Fprintln(e.out, e.styles.Failed.Render("✗ "+s))
}

func printError(err error) {
	kind, msg := failure.Describe(err)
	styles := ui.DefaultStyles()
	if kind == failure.KindUnknown {
		msg = "Error: " + msg
	} else {
		msg = "Error [" + string(kind) + "]: " + msg
	}
	fmt.Fprintln(os.Stderr, styles.Failed.Render(msg))
}

func printConnectionHelp(cfg *config.Config) {
	styles := ui.DefaultStyles()

	fmt.Println(styles.Failed.Render("Could not reach the model endpoint at " + cfg.LLM.BaseURL))
	fmt.Println()
	fmt.Println(styles.StatusText.Render("Set an API key for the hosted endpoint:"))
	fmt.Println(styles.Label.Render("  export OPENAI_API_KEY=sk-..."))
	fmt.Println()
	fmt.Println(styles.StatusText.Render("Or point llm.base_url at a local OpenAI-compatible server:"))
	fmt.Println(styles.Label.Render("  export AGENTFLOW_LLM_BASE_URL=http://localhost:11434/v1"))
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
