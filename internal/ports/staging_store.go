package ports

import (
	"context"

	"visit-route-service/internal/config"
)

// Port: local working store where records are staged before routing.
type StagingStore interface {
	// Drop and recreate the working area of the current run.
	CreateWorkingArea(ctx context.Context) error
	// Replace the contents of targetPath with records, using mapping for columns.
	Write(ctx context.Context, records []map[string]any, targetPath string, mapping []config.FieldMapping) error
	// Read back the records staged at targetPath, keyed by column name.
	Records(ctx context.Context, targetPath string, mapping []config.FieldMapping) ([]map[string]any, error)
	// Identifier of the working area.
	Path() string
}
