package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	records map[schema.EntityType][]validate.Record
	runs    []Run
}

// NewMemory returns a store seeded with existing records.
func NewMemory(seed validate.Existing) *Memory {
	m := &Memory{records: make(map[schema.EntityType][]validate.Record)}
	for et, recs := range seed {
		for _, r := range recs {
			m.records[et] = append(m.records[et], cloneRecord(r))
		}
	}
	return m
}

func cloneRecord(r validate.Record) validate.Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

func (m *Memory) indexOf(et schema.EntityType, id string) int {
	for i, r := range m.records[et] {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Create implements importer.EntityStore.
func (m *Memory) Create(ctx context.Context, et schema.EntityType, rec validate.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(et, rec.ID) >= 0 {
		return fmt.Errorf("create %s %s: %w", et, rec.ID, ErrDuplicateID)
	}
	m.records[et] = append(m.records[et], cloneRecord(rec))
	return nil
}

// Replace implements importer.EntityStore.
func (m *Memory) Replace(ctx context.Context, et schema.EntityType, existingID string, rec validate.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(et, existingID)
	if i < 0 {
		return fmt.Errorf("replace %s %s: %w", et, existingID, ErrNotFound)
	}

	rec = cloneRecord(rec)
	rec.ID = existingID
	m.records[et][i] = rec
	return nil
}

// Snapshot returns a deep copy of every record.
func (m *Memory) Snapshot(ctx context.Context) (validate.Existing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(validate.Existing, len(m.records))
	for et, recs := range m.records {
		cp := make([]validate.Record, len(recs))
		for i, r := range recs {
			cp[i] = cloneRecord(r)
		}
		out[et] = cp
	}
	return out, nil
}

// Count returns the number of records of type et.
func (m *Memory) Count(et schema.EntityType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[et])
}

// InTx stages fn's writes on a copy and applies them only when fn succeeds.
// Transactions are serialised against each other but not against direct
// writes.
func (m *Memory) InTx(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}

	staged := NewMemory(snap)
	if err := fn(staged); err != nil {
		return err
	}

	staged.mu.RLock()
	defer staged.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = staged.records
	m.runs = append(m.runs, staged.runs...)
	return nil
}

// RecordRun appends run to the history.
func (m *Memory) RecordRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// Runs returns the most recent runs first.
func (m *Memory) Runs(ctx context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Run, len(m.runs))
	copy(out, m.runs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
