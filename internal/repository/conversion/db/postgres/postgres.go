package postgres

import (
	"context"
	"fmt"
	"time"

	"pdf-rocket/internal/domain"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type ConversionsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewConversionsRepository(db *dbpg.DB, retries retry.Strategy) *ConversionsRepository {
	return &ConversionsRepository{
		db:      db,
		retries: retries,
	}
}

// Save stores an event. Redelivered events with a known id are ignored.
func (r *ConversionsRepository) Save(ctx context.Context, event *domain.ConversionEvent) (bool, error) {
	query := `
		INSERT INTO conversions (
			id, original_name, converted_name, quality, status,
			error, source_size, output_size, archive_path, created_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		event.ID,
		event.OriginalName,
		event.ConvertedName,
		event.Quality,
		event.Status,
		event.Error,
		event.SourceSize,
		event.OutputSize,
		event.ArchivePath,
		event.CreatedAt,
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save conversion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}
