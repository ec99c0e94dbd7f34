package validate

import (
	"fmt"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// ruleContext carries one row through the business rules.
type ruleContext struct {
	data   map[string]any
	policy Policy
	asOf   string // YYYY-MM-DD

	errors   []Issue
	warnings []Issue
}

func (c *ruleContext) fail(field string, value any, format string, args ...any) {
	c.errors = append(c.errors, ruleIssue(field, value, format, args...))
}

func (c *ruleContext) warn(field string, value any, format string, args ...any) {
	c.warnings = append(c.warnings, ruleIssue(field, value, format, args...))
}

// soft records a violation as an error when reject is set, a warning otherwise.
func (c *ruleContext) soft(reject bool, field string, value any, format string, args ...any) {
	if reject {
		c.fail(field, value, format, args...)
		return
	}
	c.warn(field, value, format, args...)
}

func (c *ruleContext) number(field string) (float64, bool) {
	n, ok := c.data[field].(float64)
	return n, ok
}

func (c *ruleContext) date(field string) (string, bool) {
	s, ok := c.data[field].(string)
	return s, ok && s != ""
}

func ruleIssue(field string, value any, format string, args ...any) Issue {
	return Issue{
		Field:   field,
		Value:   workbook.CellText(value),
		Message: fmt.Sprintf(format, args...),
		Code:    CodeBusinessRule,
	}
}

// businessRule is one entity-specific check, switched on and off by policy.
type businessRule struct {
	Name    string
	Enabled func(Rules) bool
	Check   func(c *ruleContext)
}

// businessRules lists the rules per entity type, in evaluation order.
// Dates are compared as YYYY-MM-DD strings.
var businessRules = map[schema.EntityType][]businessRule{
	schema.EntityProject: {
		{
			Name:    "start date precedes end date",
			Enabled: func(r Rules) bool { return r.ProjectDateOrder },
			Check: func(c *ruleContext) {
				start, ok1 := c.date("startDate")
				end, ok2 := c.date("endDate")
				if ok1 && ok2 && start > end {
					c.fail("endDate", end, "end date %s is before start date %s", end, start)
				}
			},
		},
		{
			Name:    "budget is not negative",
			Enabled: func(r Rules) bool { return r.ProjectBudgetNonNegative },
			Check: func(c *ruleContext) {
				if budget, ok := c.number("budget"); ok && budget < 0 {
					c.fail("budget", budget, "budget cannot be negative")
				}
			},
		},
		{
			Name:    "completion between 0 and 100",
			Enabled: func(r Rules) bool { return r.ProjectCompletionRange },
			Check: func(c *ruleContext) {
				pct, ok := c.number("completion")
				if !ok || (pct >= 0 && pct <= 100) {
					return
				}
				clamped := min(max(pct, 0), 100)
				c.data["completion"] = clamped
				c.warn("completion", pct, "completion %v%% is out of range, set to %v%%", pct, clamped)
			},
		},
		{
			Name:    "spent within budget",
			Enabled: func(r Rules) bool { return r.ProjectSpentWithinBudget },
			Check: func(c *ruleContext) {
				overBudget(c, c.policy.RejectOverBudgetProjects)
			},
		},
	},

	schema.EntityTask: {
		{
			Name:    "due date not in the past",
			Enabled: func(r Rules) bool { return r.TaskDueDateNotPast },
			Check: func(c *ruleContext) {
				due, ok := c.date("dueDate")
				if !ok || due >= c.asOf || c.data["status"] == "done" {
					return
				}
				c.soft(c.policy.RejectPastDueTasks, "dueDate", due, "due date %s is in the past", due)
			},
		},
		{
			Name:    "hours not negative",
			Enabled: func(r Rules) bool { return r.TaskHoursNonNegative },
			Check: func(c *ruleContext) {
				for _, field := range []string{"estimatedHours", "actualHours"} {
					if h, ok := c.number(field); ok && h < 0 {
						c.data[field] = 0.0
						c.warn(field, h, "%s cannot be negative, set to 0", field)
					}
				}
			},
		},
	},

	schema.EntityInitiative: {
		{
			Name:    "spent within budget",
			Enabled: func(r Rules) bool { return r.InitiativeSpentWithinBudget },
			Check: func(c *ruleContext) {
				overBudget(c, c.policy.RejectOverBudgetInitiatives)
			},
		},
	},

	schema.EntityMilestone: {
		{
			Name:    "completed by target date",
			Enabled: func(r Rules) bool { return r.MilestoneCompletedByTarget },
			Check: func(c *ruleContext) {
				done, ok1 := c.date("completedDate")
				target, ok2 := c.date("targetDate")
				if ok1 && ok2 && done > target {
					c.warn("completedDate", done, "completed %s, after target date %s", done, target)
				}
			},
		},
	},
}

func overBudget(c *ruleContext, reject bool) {
	budget, ok1 := c.number("budget")
	spent, ok2 := c.number("spentBudget")
	if !ok1 || !ok2 || spent <= budget {
		return
	}
	c.soft(reject, "spentBudget", spent, "spent budget %v exceeds budget %v", spent, budget)
}

// applyRules runs the enabled rules for et against data. Rules may correct
// values in data in place.
func applyRules(et schema.EntityType, data map[string]any, p Policy, asOf string) (errs, warnings []Issue) {
	c := &ruleContext{data: data, policy: p, asOf: asOf}

	for _, r := range businessRules[et] {
		if r.Enabled(p.Rules) {
			r.Check(c)
		}
	}

	return c.errors, c.warnings
}
