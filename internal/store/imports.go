package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/rapport/internal/analytics"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when the relationship already has an
	// imported export with the same fingerprint.
	ErrDuplicate = errors.New("duplicate import")
)

// Import is one analysed export ready to be persisted.
type Import struct {
	RelationshipID uuid.UUID
	OwnerUUID      uuid.UUID
	Source         string // api, nats, backfill, cli
	Fingerprint    string
	Report         *analytics.Report
}

// ImportRow is the stored summary of an import.
type ImportRow struct {
	ID                 uuid.UUID       `json:"id"`
	RelationshipID     uuid.UUID       `json:"relationship_id"`
	OwnerUUID          uuid.UUID       `json:"owner_uuid"`
	Source             string          `json:"source"`
	Format             string          `json:"format"`
	ParserID           string          `json:"parser_id"`
	Status             string          `json:"status"`
	MessageCount       int             `json:"message_count"`
	TimestampFallbacks int             `json:"timestamp_fallbacks"`
	Dropped            int             `json:"dropped"`
	CreatedAt          time.Time       `json:"created_at"`
	Analytics          json.RawMessage `json:"analytics,omitempty"`
}

// SaveImport writes the import, its messages, sessions, analytics and
// memories in one transaction. Empty reports only get the imports row.
func (s *Store) SaveImport(ctx context.Context, imp Import) (uuid.UUID, error) {
	rep := imp.Report
	if rep == nil {
		return uuid.Nil, fmt.Errorf("save import: nil report")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Insert import
	importID := uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO imports (id, relationship_id, owner_uuid, source, format, parser_id, fingerprint, status, message_count, timestamp_fallbacks, dropped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (relationship_id, fingerprint) WHERE status = 'imported' DO NOTHING`,
		importID, imp.RelationshipID, imp.OwnerUUID, imp.Source, string(rep.Format), rep.ParserID,
		imp.Fingerprint, rep.Status, len(rep.Messages), rep.Warnings.TimestampFallbacks, rep.Warnings.Dropped,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert import: %w", err)
	}
	// A concurrent import of the same export won the unique index.
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrDuplicate
	}

	if rep.Imported() {
		// 2. Copy messages, tagged with their session
		if err := copyMessages(ctx, tx, importID, rep); err != nil {
			return uuid.Nil, err
		}

		// 3. Sessions and memories
		batch := &pgx.Batch{}
		for _, sess := range rep.Sessions {
			batch.Queue(`
				INSERT INTO chat_sessions (import_id, session_index, started_at, ended_at, message_count)
				VALUES ($1, $2, $3, $4, $5)`,
				importID, sess.Index, sess.Start, sess.End, sess.Len(),
			)
		}
		for _, mem := range rep.Memories {
			batch.Queue(`
				INSERT INTO relationship_memories (id, import_id, relationship_id, session_index, session_start, content, sentiment, keywords)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), importID, imp.RelationshipID, mem.SessionIndex, mem.SessionStart, mem.Content, mem.Sentiment, mem.Keywords,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return uuid.Nil, fmt.Errorf("insert sessions and memories: %w", err)
		}

		// 4. Analytics record
		if rec := rep.Record; rec != nil {
			doc, err := json.Marshal(rec)
			if err != nil {
				return uuid.Nil, fmt.Errorf("marshal analytics: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO relationship_analytics (import_id, relationship_id, connection_score, relationship_level, sentiment_label, insight_source, record)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				importID, imp.RelationshipID, rec.ConnectionScore, rec.RelationshipLevel, rec.SentimentLabel, rec.Insight.Source, doc,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("insert analytics: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return importID, nil
}

func copyMessages(ctx context.Context, tx pgx.Tx, importID uuid.UUID, rep *analytics.Report) error {
	var rows [][]any
	seq := 0
	for _, sess := range rep.Sessions {
		for _, m := range sess.Messages {
			rows = append(rows, []any{importID, seq, sess.Index, m.Sender, m.IsFromContact, m.Timestamp, m.TimestampFallback, m.Text})
			seq++
		}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"chat_messages"},
		[]string{"import_id", "seq", "session_index", "sender", "is_from_contact", "sent_at", "timestamp_fallback", "body"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy messages: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy messages: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

// ImportExists reports whether an import with the same fingerprint was
// already stored for the relationship.
func (s *Store) ImportExists(ctx context.Context, relationshipID uuid.UUID, fingerprint string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM imports
			WHERE relationship_id = $1 AND fingerprint = $2 AND status = 'imported'
		)`,
		relationshipID, fingerprint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check import: %w", err)
	}
	return exists, nil
}

// GetImport fetches an import and its analytics document.
func (s *Store) GetImport(ctx context.Context, id uuid.UUID) (*ImportRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT i.id, i.relationship_id, i.owner_uuid, i.source, i.format, i.parser_id, i.status,
		       i.message_count, i.timestamp_fallbacks, i.dropped, i.created_at, a.record
		FROM imports i
		LEFT JOIN relationship_analytics a ON a.import_id = i.id
		WHERE i.id = $1`, id)

	var r ImportRow
	var doc []byte
	err := row.Scan(&r.ID, &r.RelationshipID, &r.OwnerUUID, &r.Source, &r.Format, &r.ParserID, &r.Status,
		&r.MessageCount, &r.TimestampFallbacks, &r.Dropped, &r.CreatedAt, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}
	if len(doc) > 0 {
		r.Analytics = json.RawMessage(doc)
	}
	return &r, nil
}
