// Package schema declares the entity schemas an import can target.
//
// Schemas are static configuration: each entity type lists its fields with
// their declared type, required flag, header aliases, semantic tags, value
// patterns, enum vocabulary, and reference target. The import stages consume
// schemas; they never compute or mutate them.
package schema

import "strings"

// EntityType tags a record type in the portfolio hierarchy.
type EntityType string

const (
	EntityNone       EntityType = ""
	EntityPillar     EntityType = "pillar"
	EntityResource   EntityType = "resource"
	EntityKPI        EntityType = "kpi"
	EntityInitiative EntityType = "initiative"
	EntityProject    EntityType = "project"
	EntityTask       EntityType = "task"
	EntityMilestone  EntityType = "milestone"
)

// DependencyOrder is the fixed order in which entity types are validated and
// imported. A type may only reference types that appear before it.
var DependencyOrder = []EntityType{
	EntityPillar,
	EntityResource,
	EntityKPI,
	EntityInitiative,
	EntityProject,
	EntityTask,
	EntityMilestone,
}

// OrderIndex returns the position of t in DependencyOrder, or -1.
func OrderIndex(t EntityType) int {
	for i, et := range DependencyOrder {
		if et == t {
			return i
		}
	}
	return -1
}

// Precedes reports whether a comes strictly before b in DependencyOrder.
func Precedes(a, b EntityType) bool {
	ia, ib := OrderIndex(a), OrderIndex(b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// ParseEntityType converts a string to an EntityType (case-insensitive).
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if OrderIndex(t) < 0 {
		return EntityNone, false
	}
	return t, true
}

// FieldType represents the declared data type of a field.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldDate      FieldType = "date"
	FieldBoolean   FieldType = "boolean"
	FieldEnum      FieldType = "enum"
	FieldReference FieldType = "reference"
)

// FieldSchema declares a single field of an entity.
type FieldSchema struct {
	Name          string     `json:"name"`                    // Record key: "estimatedHours"
	Label         string     `json:"label"`                   // Display name: "Estimated Hours"
	Type          FieldType  `json:"type"`                    // Declared type
	Required      bool       `json:"required"`                // Must be present after defaults
	Aliases       []string   `json:"aliases,omitempty"`       // Alternate header spellings
	SemanticTags  []string   `json:"semanticTags,omitempty"`  // Meaning tags: "budget", "date", "person"
	Patterns      []string   `json:"patterns,omitempty"`      // Regular expressions values usually match
	EnumValues    []string   `json:"enumValues,omitempty"`    // Allowed values for FieldEnum
	ReferenceType EntityType `json:"referenceType,omitempty"` // Target entity for FieldReference
	DefaultValue  any        `json:"defaultValue,omitempty"`  // Applied when the value is missing
}

// EntitySchema declares one entity type.
type EntitySchema struct {
	Type            EntityType    `json:"type"`
	Label           string        `json:"label"`
	Fields          []FieldSchema `json:"fields"`
	IdentifierField string        `json:"identifierField"` // "name" or "title"
	ParentField     string        `json:"parentField,omitempty"`
	ParentType      EntityType    `json:"parentType,omitempty"`
}

// Field returns the field with the given name.
func (s EntitySchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// RequiredFields returns the fields declared as required, in declaration order.
func (s EntitySchema) RequiredFields() []FieldSchema {
	var out []FieldSchema
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// ReferenceFields returns the reference-typed fields, in declaration order.
func (s EntitySchema) ReferenceFields() []FieldSchema {
	var out []FieldSchema
	for _, f := range s.Fields {
		if f.Type == FieldReference {
			out = append(out, f)
		}
	}
	return out
}
