package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lecternfm/lectern-backend/internal/types"
)

// copyLectures bulk-loads lecture rows over the postgres COPY protocol. It
// opens its own connection because COPY is a pgx-level API; callers pass the
// same DSN the GORM pool was built from. Rows must carry ids and timestamps.
func copyLectures(ctx context.Context, dsn string, rows []*types.Lecture) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if dsn == "" {
		return 0, fmt.Errorf("postgres dsn required for bulk load")
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	columns := []string{
		"id", "speaker_id", "collection_id", "title", "file_key", "file_name",
		"file_size_bytes", "file_format", "duration_secs", "play_count",
		"position", "created_at", "updated_at",
	}
	copied, err := conn.CopyFrom(ctx, pgx.Identifier{"lecture"}, columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
			l := rows[i]
			return []interface{}{
				l.ID, l.SpeakerID, l.CollectionID, l.Title, l.FileKey, l.FileName,
				l.FileSizeBytes, l.FileFormat, l.DurationSecs, l.PlayCount,
				l.Position, l.CreatedAt, l.UpdatedAt,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy into lecture: %w", err)
	}
	return copied, nil
}
