package validate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
)

// Rules toggles each business rule.
type Rules struct {
	ProjectDateOrder            bool `json:"projectDateOrder" yaml:"projectDateOrder"`
	ProjectBudgetNonNegative    bool `json:"projectBudgetNonNegative" yaml:"projectBudgetNonNegative"`
	ProjectCompletionRange      bool `json:"projectCompletionRange" yaml:"projectCompletionRange"`
	ProjectSpentWithinBudget    bool `json:"projectSpentWithinBudget" yaml:"projectSpentWithinBudget"`
	TaskDueDateNotPast          bool `json:"taskDueDateNotPast" yaml:"taskDueDateNotPast"`
	TaskHoursNonNegative        bool `json:"taskHoursNonNegative" yaml:"taskHoursNonNegative"`
	InitiativeSpentWithinBudget bool `json:"initiativeSpentWithinBudget" yaml:"initiativeSpentWithinBudget"`
	MilestoneCompletedByTarget  bool `json:"milestoneCompletedByTarget" yaml:"milestoneCompletedByTarget"`
}

// Policy holds the enforcement switches and thresholds of a validation run.
type Policy struct {
	FuzzyReferenceMatching bool `json:"fuzzyReferenceMatching" yaml:"fuzzyReferenceMatching"`
	FuzzyMatchThreshold    int  `json:"fuzzyMatchThreshold" yaml:"fuzzyMatchThreshold"` // 0-100, references and enum values
	DuplicateThreshold     int  `json:"duplicateThreshold" yaml:"duplicateThreshold"`   // 0-100, fuzzy duplicate detection
	TreatWarningsAsErrors  bool `json:"treatWarningsAsErrors" yaml:"treatWarningsAsErrors"`

	// Fields required on top of the schema, per entity type.
	AdditionalRequired map[schema.EntityType][]string `json:"additionalRequired" yaml:"additionalRequired"`

	// Minimum percentage of mapped columns a row must fill. 0 disables.
	MinRowCompleteness int `json:"minRowCompleteness" yaml:"minRowCompleteness"`

	Rules Rules `json:"rules" yaml:"rules"`

	RejectOverBudgetProjects    bool `json:"rejectOverBudgetProjects" yaml:"rejectOverBudgetProjects"`
	RejectOverBudgetInitiatives bool `json:"rejectOverBudgetInitiatives" yaml:"rejectOverBudgetInitiatives"`
	RejectPastDueTasks          bool `json:"rejectPastDueTasks" yaml:"rejectPastDueTasks"`
}

// DefaultPolicy enables every rule, fuzzy reference matching at 80, and
// duplicate detection at 85. Soft rules warn rather than reject.
func DefaultPolicy() Policy {
	return Policy{
		FuzzyReferenceMatching: true,
		FuzzyMatchThreshold:    80,
		DuplicateThreshold:     85,
		Rules: Rules{
			ProjectDateOrder:            true,
			ProjectBudgetNonNegative:    true,
			ProjectCompletionRange:      true,
			ProjectSpentWithinBudget:    true,
			TaskDueDateNotPast:          true,
			TaskHoursNonNegative:        true,
			InitiativeSpentWithinBudget: true,
			MilestoneCompletedByTarget:  true,
		},
	}
}

// Validate checks thresholds and field names.
// Returns all problems joined together.
func (p Policy) Validate() error {
	var errs []error

	if p.FuzzyMatchThreshold < 0 || p.FuzzyMatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("fuzzyMatchThreshold must be 0-100, got %d", p.FuzzyMatchThreshold))
	}
	if p.DuplicateThreshold < 0 || p.DuplicateThreshold > 100 {
		errs = append(errs, fmt.Errorf("duplicateThreshold must be 0-100, got %d", p.DuplicateThreshold))
	}
	if p.MinRowCompleteness < 0 || p.MinRowCompleteness > 100 {
		errs = append(errs, fmt.Errorf("minRowCompleteness must be 0-100, got %d", p.MinRowCompleteness))
	}

	for et, fields := range p.AdditionalRequired {
		es, ok := schema.Get(et)
		if !ok {
			errs = append(errs, fmt.Errorf("additionalRequired: unknown entity type %q", et))
			continue
		}
		for _, f := range fields {
			if _, ok := es.Field(f); !ok {
				errs = append(errs, fmt.Errorf("additionalRequired: %s has no field %q", et, f))
			}
		}
	}

	return errors.Join(errs...)
}

// ParsePolicy reads a YAML policy. Keys left out keep their DefaultPolicy
// value.
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}

	return p, nil
}

// LoadPolicyFile reads a YAML policy from path.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}
