package schema

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsRegistered(t *testing.T) {
	require.Equal(t, len(DependencyOrder), Count())

	all := All()
	for i, s := range all {
		assert.Equal(t, DependencyOrder[i], s.Type, "All() must follow dependency order")
		assert.NotEmpty(t, s.Label)

		_, ok := s.Field(s.IdentifierField)
		assert.True(t, ok, "%s: identifier field %q not declared", s.Type, s.IdentifierField)
	}
}

func TestBuiltins_FieldInvariants(t *testing.T) {
	for _, s := range All() {
		seen := make(map[string]bool)

		for _, f := range s.Fields {
			assert.False(t, seen[f.Name], "%s: duplicate field %q", s.Type, f.Name)
			seen[f.Name] = true

			switch f.Type {
			case FieldEnum:
				assert.NotEmpty(t, f.EnumValues, "%s.%s: enum without values", s.Type, f.Name)
			case FieldReference:
				assert.True(t, Precedes(f.ReferenceType, s.Type), "%s.%s -> %s", s.Type, f.Name, f.ReferenceType)
			}

			for _, p := range f.Patterns {
				_, err := regexp.Compile(p)
				assert.NoError(t, err, "%s.%s pattern", s.Type, f.Name)
			}
		}

		if s.ParentField != "" {
			parent, ok := s.Field(s.ParentField)
			require.True(t, ok, "%s: parent field %q missing", s.Type, s.ParentField)
			assert.Equal(t, s.ParentType, parent.ReferenceType)
		}
	}
}

func TestReferences(t *testing.T) {
	tests := []struct {
		entity EntityType
		field  string
		target EntityType
	}{
		{EntityKPI, "pillar", EntityPillar},
		{EntityKPI, "owner", EntityResource},
		{EntityInitiative, "pillar", EntityPillar},
		{EntityInitiative, "owner", EntityResource},
		{EntityProject, "initiative", EntityInitiative},
		{EntityProject, "manager", EntityResource},
		{EntityTask, "project", EntityProject},
		{EntityTask, "assignee", EntityResource},
		{EntityMilestone, "project", EntityProject},
	}

	for _, tt := range tests {
		t.Run(string(tt.entity)+"."+tt.field, func(t *testing.T) {
			f, ok := MustGet(tt.entity).Field(tt.field)
			require.True(t, ok)
			assert.Equal(t, FieldReference, f.Type)
			assert.Equal(t, tt.target, f.ReferenceType)
		})
	}
}

func TestPrecedes(t *testing.T) {
	assert.True(t, Precedes(EntityPillar, EntityInitiative))
	assert.True(t, Precedes(EntityResource, EntityKPI))
	assert.False(t, Precedes(EntityTask, EntityProject))
	assert.False(t, Precedes(EntityProject, EntityProject))
	assert.False(t, Precedes(EntityNone, EntityProject))
}

func TestParseEntityType(t *testing.T) {
	et, ok := ParseEntityType(" Project ")
	assert.True(t, ok)
	assert.Equal(t, EntityProject, et)

	_, ok = ParseEntityType("portfolio")
	assert.False(t, ok)
}

func TestRequiredFields(t *testing.T) {
	var names []string
	for _, f := range MustGet(EntityMilestone).RequiredFields() {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"title", "project", "targetDate"}, names)
}

func TestRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { Register(EntitySchema{Type: EntityPillar}) }, "duplicate")
	assert.Panics(t, func() { Register(EntitySchema{Type: "portfolio"}) }, "unknown type")
	assert.Panics(t, func() { MustGet("portfolio") })
}
