// Package templates renders the HTML fragments returned to HTMX clients.
//
// Components are built directly on templ.ComponentFunc; the fragments are
// small enough that a .templ source adds nothing.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// ErrorAlert renders a dismissable error box with an optional suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="alert alert-error" role="alert" data-code="%s"><p class="alert-message">%s</p>`,
			templ.EscapeString(code), templ.EscapeString(message)); err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<span class="alert-code">%s</span></div>`, templ.EscapeString(code))
		return err
	})
}

// ValidationSummary renders the counts of a validation run and its global errors.
func ValidationSummary(res validate.ImportValidationResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		status := "blocked"
		if res.CanProceed {
			status = "ready"
		}
		if _, err := fmt.Fprintf(w,
			`<div class="validation-summary" data-status="%s"><dl>`+
				`<dt>Rows</dt><dd>%d</dd><dt>Valid</dt><dd>%d</dd>`+
				`<dt>Errors</dt><dd>%d</dd><dt>Warnings</dt><dd>%d</dd>`+
				`<dt>Duplicates</dt><dd>%d</dd></dl>`,
			status, res.TotalRows, res.ValidRows, res.ErrorRows, res.WarningRows, res.DuplicateRows); err != nil {
			return err
		}
		if len(res.GlobalErrors) > 0 {
			if _, err := io.WriteString(w, `<ul class="global-errors">`); err != nil {
				return err
			}
			for _, issue := range res.GlobalErrors {
				if _, err := fmt.Fprintf(w, `<li data-code="%s">%s</li>`,
					templ.EscapeString(issue.Code), templ.EscapeString(issue.Message)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// ImportSummary renders the outcome of an executed import.
func ImportSummary(res *importer.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		status := "complete"
		switch {
		case res.Cancelled:
			status = "cancelled"
		case !res.Success:
			status = "partial"
		}
		_, err := fmt.Fprintf(w,
			`<div class="import-summary" data-import-id="%s" data-status="%s"><dl>`+
				`<dt>Created</dt><dd>%d</dd><dt>Replaced</dt><dd>%d</dd>`+
				`<dt>Skipped</dt><dd>%d</dd><dt>Failed</dt><dd>%d</dd>`+
				`<dt>Duration</dt><dd>%d ms</dd></dl></div>`,
			templ.EscapeString(res.ImportID), status,
			res.Created, res.Replaced, res.Skipped, res.Failed, res.DurationMs)
		return err
	})
}
