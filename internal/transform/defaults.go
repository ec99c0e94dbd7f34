package transform

import (
	"sort"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
)

// defaults holds the values applied to fields left empty after
// transformation, per entity type.
var defaults = map[schema.EntityType]map[string]any{
	schema.EntityPillar: {
		"ragStatus": "green",
	},
	schema.EntityResource: {
		"capacityHours": 40.0,
	},
	schema.EntityKPI: {
		"frequency": "monthly",
		"ragStatus": "green",
	},
	schema.EntityInitiative: {
		"ragStatus":   "green",
		"spentBudget": 0.0,
	},
	schema.EntityProject: {
		"status":      "not_started",
		"priority":    "medium",
		"completion":  0.0,
		"spentBudget": 0.0,
	},
	schema.EntityTask: {
		"status":         "todo",
		"priority":       "medium",
		"estimatedHours": 8.0,
		"actualHours":    0.0,
	},
	schema.EntityMilestone: {
		"status": "pending",
	},
}

// Defaults returns a copy of the default table for et.
func Defaults(et schema.EntityType) map[string]any {
	out := make(map[string]any, len(defaults[et]))
	for k, v := range defaults[et] {
		out[k] = v
	}
	return out
}

// HasDefault reports whether field of et receives a default value.
func HasDefault(et schema.EntityType, field string) bool {
	if _, ok := defaults[et][field]; ok {
		return true
	}
	if es, ok := schema.Get(et); ok {
		if f, ok := es.Field(field); ok && f.DefaultValue != nil {
			return true
		}
	}
	return false
}

// ApplyDefaults fills fields of data that are missing or nil. A field's
// declared DefaultValue takes precedence over the entity table. Resources
// also get an avatarColor derived from their name.
//
// Returns the names of the fields it set, sorted.
func ApplyDefaults(et schema.EntityType, data map[string]any) []string {
	var applied []string

	set := func(field string, v any) {
		if cur, ok := data[field]; ok && cur != nil {
			return
		}
		data[field] = v
		applied = append(applied, field)
	}

	if es, ok := schema.Get(et); ok {
		for _, f := range es.Fields {
			if f.DefaultValue != nil {
				set(f.Name, f.DefaultValue)
			}
		}
	}

	for field, v := range defaults[et] {
		set(field, v)
	}

	if et == schema.EntityResource {
		if name, ok := data["name"].(string); ok && name != "" {
			set("avatarColor", AvatarColor(name))
		}
	}

	sort.Strings(applied)
	return applied
}

// AvatarPalette is the set of colours AvatarColor picks from.
var AvatarPalette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444",
	"#8B5CF6", "#EC4899", "#06B6D4", "#84CC16",
}

// AvatarColor picks a palette colour from a 31-multiplier hash of name's
// character codes, computed in 32-bit arithmetic. The same name always
// yields the same colour.
func AvatarColor(name string) string {
	var h int32
	for _, r := range name {
		h = int32(r) + ((h << 5) - h)
	}

	idx := int64(h)
	if idx < 0 {
		idx = -idx
	}

	return AvatarPalette[idx%int64(len(AvatarPalette))]
}
