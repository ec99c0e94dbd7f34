package schema

// Shared enum vocabularies.
var (
	RAGValues           = []string{"red", "amber", "green"}
	PriorityValues      = []string{"low", "medium", "high", "critical"}
	ProjectStatusValues = []string{"not_started", "in_progress", "on_hold", "completed", "cancelled"}
	TaskStatusValues    = []string{"todo", "in_progress", "review", "done", "blocked"}
	MilestoneStatuses   = []string{"pending", "achieved", "missed"}
	FrequencyValues     = []string{"weekly", "monthly", "quarterly", "annually"}
)

// EmailPattern matches a plausible email address.
const EmailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`

func ragField() FieldSchema {
	return FieldSchema{
		Name: "ragStatus", Label: "RAG Status", Type: FieldEnum,
		Aliases:      []string{"rag", "rag status", "health", "status", "traffic light"},
		SemanticTags: []string{"status"},
		EnumValues:   RAGValues,
	}
}

func descriptionField() FieldSchema {
	return FieldSchema{
		Name: "description", Label: "Description", Type: FieldString,
		Aliases:      []string{"details", "summary", "notes", "comments"},
		SemanticTags: []string{"description"},
	}
}

func priorityField() FieldSchema {
	return FieldSchema{
		Name: "priority", Label: "Priority", Type: FieldEnum,
		Aliases:      []string{"priority", "importance", "severity"},
		SemanticTags: []string{"priority"},
		EnumValues:   PriorityValues,
	}
}

func dateField(name, label string, tags []string, aliases ...string) FieldSchema {
	return FieldSchema{
		Name: name, Label: label, Type: FieldDate,
		Aliases:      aliases,
		SemanticTags: append([]string{"date"}, tags...),
	}
}

func budgetFields() []FieldSchema {
	return []FieldSchema{
		{
			Name: "budget", Label: "Budget", Type: FieldNumber,
			Aliases:      []string{"allocated budget", "total budget", "funding", "planned cost"},
			SemanticTags: []string{"budget"},
		},
		{
			Name: "spentBudget", Label: "Spent Budget", Type: FieldNumber,
			Aliases:      []string{"spent", "actual spend", "actual cost", "spend to date"},
			SemanticTags: []string{"budget", "spend"},
		},
	}
}

var pillarSchema = EntitySchema{
	Type:  EntityPillar,
	Label: "Strategic Pillar",
	Fields: []FieldSchema{
		{
			Name: "name", Label: "Pillar Name", Type: FieldString, Required: true,
			Aliases:      []string{"pillar", "strategic pillar", "theme", "strategic theme", "title"},
			SemanticTags: []string{"name"},
		},
		descriptionField(),
		{
			Name: "owner", Label: "Owner", Type: FieldString,
			Aliases:      []string{"lead", "sponsor", "accountable", "executive"},
			SemanticTags: []string{"person"},
		},
		ragField(),
	},
	IdentifierField: "name",
}

var resourceSchema = EntitySchema{
	Type:  EntityResource,
	Label: "Resource",
	Fields: []FieldSchema{
		{
			Name: "name", Label: "Full Name", Type: FieldString, Required: true,
			Aliases:      []string{"resource", "person", "employee", "team member", "member", "name"},
			SemanticTags: []string{"name", "person"},
		},
		{
			Name: "email", Label: "Email", Type: FieldString,
			Aliases:      []string{"email address", "e-mail", "mail", "work email"},
			SemanticTags: []string{"email"},
			Patterns:     []string{EmailPattern},
		},
		{
			Name: "role", Label: "Role", Type: FieldString,
			Aliases:      []string{"job title", "position", "function"},
			SemanticTags: []string{"role"},
		},
		{
			Name: "department", Label: "Department", Type: FieldString,
			Aliases:      []string{"dept", "team", "division", "business unit"},
			SemanticTags: []string{"department"},
		},
		{
			Name: "costRate", Label: "Cost Rate", Type: FieldNumber,
			Aliases:      []string{"rate", "hourly rate", "day rate", "cost per hour"},
			SemanticTags: []string{"cost", "rate"},
		},
		{
			Name: "capacityHours", Label: "Capacity Hours", Type: FieldNumber,
			Aliases:      []string{"capacity", "hours per week", "weekly hours", "availability"},
			SemanticTags: []string{"hours"},
		},
		{
			Name: "skills", Label: "Skills", Type: FieldString,
			Aliases:      []string{"expertise", "competencies"},
			SemanticTags: []string{"skills"},
		},
	},
	IdentifierField: "name",
}

var kpiSchema = EntitySchema{
	Type:  EntityKPI,
	Label: "KPI",
	Fields: []FieldSchema{
		{
			Name: "name", Label: "KPI Name", Type: FieldString, Required: true,
			Aliases:      []string{"kpi", "metric", "measure", "indicator", "kpi name"},
			SemanticTags: []string{"name"},
		},
		{
			Name: "pillar", Label: "Pillar", Type: FieldReference,
			Aliases:       []string{"strategic pillar", "theme", "pillar name"},
			SemanticTags:  []string{"parent"},
			ReferenceType: EntityPillar,
		},
		{
			Name: "owner", Label: "Owner", Type: FieldReference,
			Aliases:       []string{"accountable", "responsible", "kpi owner"},
			SemanticTags:  []string{"person"},
			ReferenceType: EntityResource,
		},
		{
			Name: "unit", Label: "Unit", Type: FieldString,
			Aliases:      []string{"uom", "unit of measure", "units"},
			SemanticTags: []string{"unit"},
		},
		{
			Name: "baseline", Label: "Baseline", Type: FieldNumber,
			Aliases:      []string{"baseline value", "starting value"},
			SemanticTags: []string{"metric"},
		},
		{
			Name: "target", Label: "Target", Type: FieldNumber, Required: true,
			Aliases:      []string{"target value", "goal"},
			SemanticTags: []string{"target", "metric"},
		},
		{
			Name: "current", Label: "Current Value", Type: FieldNumber,
			Aliases:      []string{"current", "actual", "actual value", "latest"},
			SemanticTags: []string{"current", "metric"},
		},
		{
			Name: "frequency", Label: "Frequency", Type: FieldEnum,
			Aliases:      []string{"cadence", "reporting frequency", "period"},
			SemanticTags: []string{"frequency"},
			EnumValues:   FrequencyValues,
		},
		ragField(),
	},
	IdentifierField: "name",
	ParentField:     "pillar",
	ParentType:      EntityPillar,
}

var initiativeSchema = EntitySchema{
	Type:  EntityInitiative,
	Label: "Initiative",
	Fields: append([]FieldSchema{
		{
			Name: "name", Label: "Initiative Name", Type: FieldString, Required: true,
			Aliases:      []string{"initiative", "program", "programme", "initiative name"},
			SemanticTags: []string{"name"},
		},
		{
			Name: "pillar", Label: "Pillar", Type: FieldReference, Required: true,
			Aliases:       []string{"strategic pillar", "theme", "pillar name"},
			SemanticTags:  []string{"parent"},
			ReferenceType: EntityPillar,
		},
		{
			Name: "owner", Label: "Owner", Type: FieldReference,
			Aliases:       []string{"sponsor", "lead", "initiative owner"},
			SemanticTags:  []string{"person"},
			ReferenceType: EntityResource,
		},
		descriptionField(),
		dateField("startDate", "Start Date", []string{"start"}, "start", "begin date", "kickoff"),
		dateField("endDate", "End Date", []string{"end"}, "end", "finish date", "completion date"),
		ragField(),
	}, budgetFields()...),
	IdentifierField: "name",
	ParentField:     "pillar",
	ParentType:      EntityPillar,
}

var projectSchema = EntitySchema{
	Type:  EntityProject,
	Label: "Project",
	Fields: append([]FieldSchema{
		{
			Name: "name", Label: "Project Name", Type: FieldString, Required: true,
			Aliases:      []string{"project name", "title", "project"},
			SemanticTags: []string{"name"},
		},
		{
			Name: "initiative", Label: "Initiative", Type: FieldReference,
			Aliases:       []string{"program", "parent initiative", "initiative name"},
			SemanticTags:  []string{"parent"},
			ReferenceType: EntityInitiative,
		},
		{
			Name: "manager", Label: "Project Manager", Type: FieldReference,
			Aliases:       []string{"pm", "manager", "owner", "lead"},
			SemanticTags:  []string{"person"},
			ReferenceType: EntityResource,
		},
		{
			Name: "department", Label: "Department", Type: FieldString,
			Aliases:      []string{"dept", "team", "division", "business unit"},
			SemanticTags: []string{"department"},
		},
		{
			Name: "category", Label: "Category", Type: FieldString,
			Aliases:      []string{"project type", "type", "workstream"},
			SemanticTags: []string{"category"},
		},
		{
			Name: "fiscalYear", Label: "Fiscal Year", Type: FieldNumber,
			Aliases:      []string{"fy", "budget year", "year"},
			SemanticTags: []string{"year"},
		},
		{
			Name: "status", Label: "Status", Type: FieldEnum,
			Aliases:      []string{"state", "phase", "project status"},
			SemanticTags: []string{"status"},
			EnumValues:   ProjectStatusValues,
		},
		priorityField(),
		dateField("startDate", "Start Date", []string{"start"}, "start", "begin date", "kickoff"),
		dateField("endDate", "End Date", []string{"end"}, "end", "finish date", "go live", "deadline"),
		{
			Name: "completion", Label: "Completion %", Type: FieldNumber,
			Aliases:      []string{"percent complete", "% complete", "progress", "completion"},
			SemanticTags: []string{"percentage", "progress"},
		},
		descriptionField(),
	}, budgetFields()...),
	IdentifierField: "name",
	ParentField:     "initiative",
	ParentType:      EntityInitiative,
}

var taskSchema = EntitySchema{
	Type:  EntityTask,
	Label: "Task",
	Fields: []FieldSchema{
		{
			Name: "title", Label: "Task", Type: FieldString, Required: true,
			Aliases:      []string{"task name", "task title", "name", "summary", "work item"},
			SemanticTags: []string{"name"},
		},
		{
			Name: "project", Label: "Project", Type: FieldReference, Required: true,
			Aliases:       []string{"project name", "parent project"},
			SemanticTags:  []string{"parent"},
			ReferenceType: EntityProject,
		},
		{
			Name: "assignee", Label: "Assignee", Type: FieldReference,
			Aliases:       []string{"assigned to", "owner", "resource", "responsible"},
			SemanticTags:  []string{"person"},
			ReferenceType: EntityResource,
		},
		{
			Name: "status", Label: "Status", Type: FieldEnum,
			Aliases:      []string{"state", "stage", "column", "kanban", "task status"},
			SemanticTags: []string{"status"},
			EnumValues:   TaskStatusValues,
		},
		priorityField(),
		{
			Name: "estimatedHours", Label: "Estimated Hours", Type: FieldNumber,
			Aliases:      []string{"estimate", "est hours", "effort", "hours"},
			SemanticTags: []string{"hours", "estimate"},
		},
		{
			Name: "actualHours", Label: "Actual Hours", Type: FieldNumber,
			Aliases:      []string{"hours spent", "logged hours", "time spent"},
			SemanticTags: []string{"hours"},
		},
		dateField("dueDate", "Due Date", []string{"due"}, "due", "deadline", "due by"),
		descriptionField(),
	},
	IdentifierField: "title",
	ParentField:     "project",
	ParentType:      EntityProject,
}

var milestoneSchema = EntitySchema{
	Type:  EntityMilestone,
	Label: "Milestone",
	Fields: []FieldSchema{
		{
			Name: "title", Label: "Milestone", Type: FieldString, Required: true,
			Aliases:      []string{"milestone name", "name", "deliverable", "gate"},
			SemanticTags: []string{"name"},
		},
		{
			Name: "project", Label: "Project", Type: FieldReference, Required: true,
			Aliases:       []string{"project name", "parent project"},
			SemanticTags:  []string{"parent"},
			ReferenceType: EntityProject,
		},
		func() FieldSchema {
			f := dateField("targetDate", "Target Date", []string{"target", "due"}, "due date", "planned date", "date")
			f.Required = true
			return f
		}(),
		dateField("completedDate", "Completed Date", []string{"completed"}, "completed", "actual date", "achieved on"),
		{
			Name: "status", Label: "Status", Type: FieldEnum,
			Aliases:      []string{"state", "milestone status"},
			SemanticTags: []string{"status"},
			EnumValues:   MilestoneStatuses,
		},
		descriptionField(),
	},
	IdentifierField: "title",
	ParentField:     "project",
	ParentType:      EntityProject,
}

func init() {
	Register(pillarSchema)
	Register(resourceSchema)
	Register(kpiSchema)
	Register(initiativeSchema)
	Register(projectSchema)
	Register(taskSchema)
	Register(milestoneSchema)
}
