package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/portfolio-import/internal/core"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/store"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printAnalysis(w io.Writer, a *core.Analysis) {
	fmt.Fprintf(w, "%s: %d sheet(s)\n\n", a.FileName, len(a.Sheets))

	for _, p := range a.Sheets {
		sa := p.Analysis
		switch {
		case sa.Excluded:
			fmt.Fprintf(w, "%s: excluded (%s)\n\n", sa.SheetName, sa.ExcludeReason)
			continue
		case !p.Enabled():
			fmt.Fprintf(w, "%s: no entity type detected\n\n", sa.SheetName)
			continue
		}

		fmt.Fprintf(w, "%s: %s (%d%%), %d rows\n", sa.SheetName, sa.EntityType, sa.Confidence, sa.RowCount)

		tw := newTable(w)
		fmt.Fprintln(tw, "  COLUMN\tFIELD\tCONFIDENCE\tREASON")
		for _, sg := range p.Suggestions {
			field := sg.TargetField
			if field == "" {
				field = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", sg.ColumnName, field, sg.Confidence, sg.Reason)
		}
		tw.Flush()

		if len(p.MissingRequired) > 0 {
			fmt.Fprintf(w, "  missing required: %s\n", strings.Join(p.MissingRequired, ", "))
		}
		fmt.Fprintln(w)
	}
}

// printValidation prints per-sheet counts then up to maxIssues row issues.
func printValidation(w io.Writer, res validate.ImportValidationResult, maxIssues int) {
	tw := newTable(w)
	fmt.Fprintln(tw, "SHEET\tTYPE\tROWS\tVALID\tERRORS\tWARNINGS\tDUPLICATES")
	for _, s := range res.Sheets {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.SheetName, s.EntityType, s.TotalRows, s.ValidRows, s.ErrorRows, s.WarningRows, s.DuplicateRows)
	}
	tw.Flush()

	for _, issue := range res.GlobalErrors {
		fmt.Fprintf(w, "error: %s [%s]\n", issue.Message, issue.Code)
	}

	printed, hidden := 0, 0
	tw = newTable(w)
	for _, s := range res.Sheets {
		for _, issue := range s.Warnings {
			fmt.Fprintf(tw, "%s\t-\twarning\t%s\t%s\n", s.SheetName, issue.Code, issue.Message)
		}
		for _, row := range s.Rows {
			for _, kind := range []struct {
				label  string
				issues []validate.Issue
			}{{"error", row.Errors}, {"warning", row.Warnings}} {
				for _, issue := range kind.issues {
					if maxIssues > 0 && printed >= maxIssues {
						hidden++
						continue
					}
					fmt.Fprintf(tw, "%s\trow %d\t%s\t%s\t%s\n", s.SheetName, row.RowNumber, kind.label, issue.Code, issue.Message)
					printed++
				}
			}
		}
	}
	tw.Flush()

	if hidden > 0 {
		fmt.Fprintf(w, "(%d more issues; use --max-issues 0 for all)\n", hidden)
	}

	if res.CanProceed {
		fmt.Fprintf(w, "\nready to import %d of %d rows\n", res.ValidRows, res.TotalRows)
	} else {
		fmt.Fprintln(w, "\nimport blocked")
	}
}

func printResult(w io.Writer, res *importer.Result, dryRun bool) {
	tw := newTable(w)
	fmt.Fprintln(tw, "SHEET\tTYPE\tCREATED\tREPLACED\tSKIPPED\tFAILED")
	for _, s := range res.Sheets {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", s.SheetName, s.EntityType, s.Created, s.Replaced, s.Skipped, s.Failed)
	}
	tw.Flush()

	for _, s := range res.Sheets {
		for _, row := range s.Rows {
			switch {
			case row.Status == importer.StatusFailed:
				fmt.Fprintf(w, "failed: %s row %d %q: %s\n", s.SheetName, row.RowNumber, row.Name, row.Reason)
			case row.Reason != "":
				fmt.Fprintf(w, "note: %s row %d %q: %s\n", s.SheetName, row.RowNumber, row.Name, row.Reason)
			}
		}
	}

	state := "complete"
	switch {
	case res.Cancelled:
		state = "cancelled, nothing was written"
	case !res.Success:
		state = "complete with failures"
	}
	fmt.Fprintf(w, "\nimport %s %s in %d ms\n", res.ImportID, state, res.DurationMs)
	if dryRun {
		fmt.Fprintln(w, "dry run: nothing was persisted (use --apply to write)")
	}
}

func printHistory(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no imports recorded")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "STARTED\tID\tFILE\tCREATED\tREPLACED\tSKIPPED\tFAILED\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if r.Cancelled {
			status = "cancelled"
		} else if r.Failed > 0 {
			status = "partial"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.ID, r.FileName, r.Created, r.Replaced, r.Skipped, r.Failed, status)
	}
	tw.Flush()
}
