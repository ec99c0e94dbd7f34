package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[EntityType]EntitySchema)
	registryMu sync.RWMutex
)

// Register adds an entity schema to the registry.
// Panics if the type is unknown, already registered, or references a type
// that does not precede it in DependencyOrder.
func Register(s EntitySchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if OrderIndex(s.Type) < 0 {
		panic(fmt.Sprintf("unknown entity type: %q", s.Type))
	}
	if _, exists := registry[s.Type]; exists {
		panic(fmt.Sprintf("entity schema already registered: %s", s.Type))
	}
	for _, f := range s.Fields {
		if f.Type == FieldReference && !Precedes(f.ReferenceType, s.Type) {
			panic(fmt.Sprintf("%s.%s references %q which does not precede %s", s.Type, f.Name, f.ReferenceType, s.Type))
		}
	}

	// Default the identifier to "name"
	if s.IdentifierField == "" {
		s.IdentifierField = "name"
	}

	registry[s.Type] = s
}

// Get returns the schema for an entity type.
// Returns false if not found.
func Get(t EntityType) (EntitySchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[t]
	return s, ok
}

// MustGet returns the schema for an entity type or panics.
func MustGet(t EntityType) EntitySchema {
	s, ok := Get(t)
	if !ok {
		panic(fmt.Sprintf("entity schema not registered: %q", t))
	}
	return s
}

// All returns every registered schema in DependencyOrder.
func All() []EntitySchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntitySchema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return OrderIndex(result[i].Type) < OrderIndex(result[j].Type)
	})

	return result
}

// Count returns the number of registered schemas.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
