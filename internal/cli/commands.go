package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/portfolio-import/internal/core"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

func analyzeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE",
		Short: "Detect entity types and suggest column mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cliContext(cmd)
			e, err := newEnv(ctx, g, false)
			if err != nil {
				return err
			}
			defer e.close()

			analysis, err := e.analyzeFile(ctx, args[0])
			if err != nil {
				return err
			}

			if g.jsonOut {
				return printJSON(out(cmd), analysis)
			}
			printAnalysis(out(cmd), analysis)
			return nil
		},
	}
}

// sheetFlags select which sheets take part in validate and import.
type sheetFlags struct {
	skip []string
}

func (f *sheetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.skip, "skip-sheet", nil, "sheet to leave out (repeatable)")
}

// request builds a validation request from the analysis with skipped sheets
// disabled. Without skips the session's own plans are used.
func (f *sheetFlags) request(analysis *core.Analysis) (core.ValidateRequest, error) {
	req := core.ValidateRequest{SessionID: analysis.SessionID}
	if len(f.skip) == 0 {
		return req, nil
	}

	req.Configs = core.SheetConfigs(analysis.Sheets)
	for _, name := range f.skip {
		i := slices.IndexFunc(req.Configs, func(c validate.SheetConfig) bool { return c.SheetName == name })
		if i < 0 {
			return req, fmt.Errorf("--skip-sheet: sheet %q not found in workbook", name)
		}
		req.Configs[i].Enabled = false
	}
	return req, nil
}

func validateCmd(g *globalFlags) *cobra.Command {
	var sheets sheetFlags
	var maxIssues int

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a workbook without importing it",
		Long: "Validate a workbook without importing it. Exits non-zero when the\n" +
			"workbook has blocking errors.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cliContext(cmd)
			e, err := newEnv(ctx, g, false)
			if err != nil {
				return err
			}
			defer e.close()

			analysis, err := e.analyzeFile(ctx, args[0])
			if err != nil {
				return err
			}

			req, err := sheets.request(analysis)
			if err != nil {
				return err
			}

			res, err := e.service.Validate(ctx, req)
			if err != nil {
				return err
			}

			if g.jsonOut {
				if err := printJSON(out(cmd), res); err != nil {
					return err
				}
			} else {
				printValidation(out(cmd), res, maxIssues)
			}

			if !res.CanProceed {
				return importer.ErrCannotProceed
			}
			return nil
		},
	}

	sheets.register(cmd)
	cmd.Flags().IntVar(&maxIssues, "max-issues", 20, "row issues to print, 0 for all")
	return cmd
}

func importCmd(g *globalFlags) *cobra.Command {
	var sheets sheetFlags
	var apply, fuzzy bool
	var duplicates string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate and import a workbook",
		Long: "Validate and import a workbook. Without --apply the import runs\n" +
			"against an empty in-memory store and nothing is persisted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dup, ok := importer.ParseDuplicateStrategy(duplicates)
			if !ok {
				return fmt.Errorf("unknown duplicate strategy %q", duplicates)
			}

			ctx := cliContext(cmd)
			e, err := newEnv(ctx, g, apply)
			if err != nil {
				return err
			}
			defer e.close()

			analysis, err := e.analyzeFile(ctx, args[0])
			if err != nil {
				return err
			}

			req, err := sheets.request(analysis)
			if err != nil {
				return err
			}

			result, res, err := e.service.RunImport(ctx, core.ImportRequest{
				ValidateRequest: req,
				Duplicates:      dup,
				FuzzyDuplicates: fuzzy,
			})
			if result == nil {
				if res.Sheets != nil && !g.jsonOut {
					printValidation(out(cmd), res, 20)
				}
				return err
			}

			if g.jsonOut {
				if perr := printJSON(out(cmd), result); perr != nil {
					return perr
				}
			} else {
				printResult(out(cmd), result, !apply)
			}
			return err
		},
	}

	sheets.register(cmd)
	cmd.Flags().BoolVar(&apply, "apply", false, "write to the database in DATABASE_URL")
	cmd.Flags().StringVar(&duplicates, "duplicates", string(importer.DuplicateSkip), "duplicate strategy: skip, keep or replace")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy-duplicates", false, "apply --duplicates to fuzzy matches, not only exact ones")
	return cmd
}

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent imports recorded in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cliContext(cmd)
			e, err := newEnv(ctx, g, true)
			if err != nil {
				return err
			}
			defer e.close()

			runs, err := e.service.History(ctx, limit)
			if err != nil {
				return err
			}

			if g.jsonOut {
				return printJSON(out(cmd), runs)
			}
			printHistory(out(cmd), runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}
