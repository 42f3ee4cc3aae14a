package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"visit-route-service/internal/config"
)

// MemoryStore is an in-process StagingStore with the same coercion and
// replace semantics as PostgresStore.
type MemoryStore struct {
	path    string
	created bool
	tables  map[string][]map[string]any

	// CreateErr, when set, is returned by CreateWorkingArea.
	CreateErr error
	Writes    int
}

func NewMemoryStore(runFullName string) *MemoryStore {
	return &MemoryStore{path: SchemaName(runFullName)}
}

func (m *MemoryStore) Path() string { return m.path }

func (m *MemoryStore) CreateWorkingArea(context.Context) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.created = true
	m.tables = map[string][]map[string]any{}
	return nil
}

func (m *MemoryStore) Write(_ context.Context, records []map[string]any, targetPath string, mapping []config.FieldMapping) error {
	if !m.created {
		return fmt.Errorf("staging write: working area %q does not exist", m.path)
	}
	if strings.TrimSpace(targetPath) == "" {
		return errors.New("staging write: target path is empty")
	}
	if len(mapping) == 0 {
		return errors.New("staging write: field mapping is empty")
	}
	for _, f := range mapping {
		if _, err := sqlType(f.Type); err != nil {
			return fmt.Errorf("staging write %q: %w", targetPath, err)
		}
	}

	rows := make([]map[string]any, 0, len(records))
	for i, rec := range records {
		vals, err := rowValues(rec, mapping)
		if err != nil {
			return fmt.Errorf("staging write: record #%d: %w", i+1, err)
		}
		row := make(map[string]any, len(mapping))
		for j, f := range mapping {
			if vals[j] != nil {
				row[f.Name] = vals[j]
			}
		}
		rows = append(rows, row)
	}

	m.tables[targetPath] = rows
	m.Writes++
	return nil
}

func (m *MemoryStore) Records(_ context.Context, targetPath string, mapping []config.FieldMapping) ([]map[string]any, error) {
	rows, ok := m.tables[targetPath]
	if !ok {
		return nil, fmt.Errorf("staging records: %q does not exist in %q", targetPath, m.path)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(mapping))
		for _, f := range mapping {
			if v, ok := row[f.Name]; ok {
				rec[f.Name] = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
