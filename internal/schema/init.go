package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/bookboost/internal/defra"
)

// Initialize applies every schema to DefraDB. Collections that already exist
// are skipped, so it is safe to call on each start.
func Initialize(ctx context.Context, client *defra.Client, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	schemas, err := All()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	for _, s := range schemas {
		if err := client.AddSchema(ctx, s.SDL); err != nil {
			// DefraDB reports this only as text in the response body.
			if strings.Contains(err.Error(), "already exists") {
				logger.Debug("schema already exists", "name", s.Name)
				continue
			}
			return fmt.Errorf("failed to add schema %s: %w", s.Name, err)
		}
		logger.Info("schema added", "name", s.Name)
	}
	return nil
}
