// Package cli implements importctl, a command-line front end to the import
// service. Commands run against an in-memory store unless --apply is given.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/portfolio-import/internal/config"
	"github.com/JonMunkholm/portfolio-import/internal/core"
	"github.com/JonMunkholm/portfolio-import/internal/logging"
	"github.com/JonMunkholm/portfolio-import/internal/store"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// flags shared by every command.
type globalFlags struct {
	policyFile string
	jsonOut    bool
	logLevel   string
}

// Execute runs the root command and prints user-facing errors to stderr.
// Interrupting a running import rolls it back.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRoot()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(root.ErrOrStderr(), core.FormatUserError(err))
		}
		return 1
	}
	return 0
}

func NewRoot() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Analyze, validate and import portfolio workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()
			logging.SetupWriter(cmd.ErrOrStderr(), g.logLevel, "text")
		},
	}

	root.PersistentFlags().StringVar(&g.policyFile, "policy", "", "YAML validation policy (overrides IMPORT_POLICY_FILE)")
	root.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		analyzeCmd(g),
		validateCmd(g),
		importCmd(g),
		historyCmd(g),
	)
	return root
}

// env is a service plus whatever it needs closed.
type env struct {
	cfg     *config.Config
	service *core.Service
	close   func()
}

// newEnv builds a service. With apply set it writes to the configured
// database; otherwise to a fresh in-memory store.
func newEnv(ctx context.Context, g *globalFlags, apply bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts, err := core.OptionsFromConfig(cfg.Import)
	if err != nil {
		return nil, err
	}
	if g.policyFile != "" {
		if opts.Policy, err = validate.LoadPolicyFile(g.policyFile); err != nil {
			return nil, err
		}
	}

	e := &env{cfg: cfg, close: func() {}}

	var st store.Store
	if apply {
		if !cfg.Database.Enabled() {
			return nil, fmt.Errorf("--apply needs DATABASE_URL")
		}
		pg, pool, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		e.close = pool.Close
		st = pg
	} else {
		slog.Debug("dry run against an in-memory store")
		st = store.NewMemory(nil)
	}

	e.service = core.NewService(st, opts)
	return e, nil
}

// analyzeFile opens path and analyzes it as the CLI client.
func (e *env) analyzeFile(ctx context.Context, path string) (*core.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return e.service.Analyze(ctx, filepath.Base(path), f)
}

// cliContext tags the context so service logs name the CLI as the client.
func cliContext(cmd *cobra.Command) context.Context {
	return core.ContextWithClient(cmd.Context(), core.Client{IP: "local", UserAgent: "importctl"})
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
