package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/rapport/internal/analytics"
	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/hermes"
	"github.com/MikeSquared-Agency/rapport/internal/store"
)

// Import sources recorded with each stored import.
const (
	SourceAPI      = "api"
	SourceNATS     = "nats"
	SourceBackfill = "backfill"
	SourceWatch    = "watch"
)

// ErrInvalidRequest marks requests that fail validation before any work starts.
var ErrInvalidRequest = errors.New("invalid import request")

// Sink persists analysed imports. *store.Store satisfies it.
type Sink interface {
	SaveImport(ctx context.Context, imp store.Import) (uuid.UUID, error)
	ImportExists(ctx context.Context, relationshipID uuid.UUID, fingerprint string) (bool, error)
}

// Publisher emits import events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier announces finished imports to humans. *slack.Poster satisfies it.
type Notifier interface {
	NotifyImport(ctx context.Context, relationshipID uuid.UUID, rep *analytics.Report) error
}

// Request is one export to import for a relationship.
type Request struct {
	RelationshipID uuid.UUID
	OwnerUUID      uuid.UUID
	Source         string
	Export         chatlog.RawExport
}

// Outcome is the result of an Import call.
type Outcome struct {
	ImportID  uuid.UUID         `json:"import_id"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Report    *analytics.Report `json:"report,omitempty"`
}

// Processor orchestrates rapport's import pipeline: analyse, persist, announce.
type Processor struct {
	pipeline *analytics.Pipeline
	sink     Sink
	pub      Publisher
	notifier Notifier
	logger   *slog.Logger
}

// New creates a Processor. sink and pub may be nil, in which case imports are
// analysed without being stored or announced.
func New(pipeline *analytics.Pipeline, sink Sink, pub Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		pipeline: pipeline,
		sink:     sink,
		pub:      pub,
		logger:   logger,
	}
}

// SetNotifier enables human notifications for stored imports.
func (p *Processor) SetNotifier(n Notifier) {
	p.notifier = n
}

// Analyze runs the pipeline without persistence.
func (p *Processor) Analyze(ctx context.Context, export chatlog.RawExport) *analytics.Report {
	return p.pipeline.Run(ctx, export)
}

// Import analyses an export, stores it and publishes the matching event.
// An export already stored for the relationship is reported as a duplicate
// without re-running the pipeline.
func (p *Processor) Import(ctx context.Context, req Request) (*Outcome, error) {
	if req.RelationshipID == uuid.Nil {
		return nil, fmt.Errorf("%w: relationship id required", ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(req.Export.Content)
	if p.sink != nil {
		exists, err := p.sink.ImportExists(ctx, req.RelationshipID, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			p.logger.Info("duplicate export skipped",
				"relationship_id", req.RelationshipID,
				"fingerprint", fingerprint,
			)
			return &Outcome{Duplicate: true}, nil
		}
	}

	report := p.pipeline.Run(ctx, req.Export)
	out := &Outcome{Report: report}

	if p.sink != nil {
		id, err := p.sink.SaveImport(ctx, store.Import{
			RelationshipID: req.RelationshipID,
			OwnerUUID:      req.OwnerUUID,
			Source:         req.Source,
			Fingerprint:    fingerprint,
			Report:         report,
		})
		if errors.Is(err, store.ErrDuplicate) {
			p.logger.Info("duplicate export skipped",
				"relationship_id", req.RelationshipID,
				"fingerprint", fingerprint,
			)
			return &Outcome{Duplicate: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("save import: %w", err)
		}
		out.ImportID = id
	}

	p.announce(req, out, len(req.Export.Content))
	if p.notifier != nil {
		if err := p.notifier.NotifyImport(ctx, req.RelationshipID, report); err != nil {
			p.logger.Warn("import notification failed", "relationship_id", req.RelationshipID, "error", err)
		}
	}

	p.logger.Info("import processed",
		"import_id", out.ImportID,
		"relationship_id", req.RelationshipID,
		"source", req.Source,
		"status", report.Status,
		"format", report.Format,
		"parser", report.ParserID,
		"messages", len(report.Messages),
	)
	return out, nil
}

func (p *Processor) announce(req Request, out *Outcome, size int) {
	if p.pub == nil {
		return
	}
	rep := out.Report

	if !rep.Imported() {
		if err := p.pub.Publish(hermes.SubjectImportEmpty, hermes.ImportEmpty{
			RelationshipID: req.RelationshipID.String(),
			OwnerUUID:      req.OwnerUUID.String(),
			Format:         string(rep.Format),
			Bytes:          size,
			Reason:         rep.Status,
		}); err != nil {
			p.logger.Error("failed to publish import empty", "error", err)
		}
		return
	}

	evt := hermes.ImportCompleted{
		ImportID:           out.ImportID.String(),
		RelationshipID:     req.RelationshipID.String(),
		OwnerUUID:          req.OwnerUUID.String(),
		Format:             string(rep.Format),
		ParserID:           rep.ParserID,
		Messages:           len(rep.Messages),
		Sessions:           len(rep.Sessions),
		Memories:           len(rep.Memories),
		TimestampFallbacks: rep.Warnings.TimestampFallbacks,
		Dropped:            rep.Warnings.Dropped,
	}
	if rec := rep.Record; rec != nil {
		evt.ConnectionScore = rec.ConnectionScore
		evt.RelationshipLevel = rec.RelationshipLevel
		evt.SentimentLabel = rec.SentimentLabel
		evt.InsightSource = rec.Insight.Source
	}
	if err := p.pub.Publish(hermes.SubjectImportCompleted, evt); err != nil {
		p.logger.Error("failed to publish import completed", "error", err)
	}
}

// HandleImportRequested is the NATS handler for swarm.rapport.import.requested.
func (p *Processor) HandleImportRequested(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.ImportRequested
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse import request", "subject", subject, "error", err)
		return
	}

	relID, err := uuid.Parse(evt.RelationshipID)
	if err != nil {
		p.logger.Error("invalid relationship id", "relationship_id", evt.RelationshipID, "error", err)
		return
	}
	ownerUUID, err := uuid.Parse(evt.OwnerUUID)
	if err != nil {
		p.logger.Error("invalid owner uuid", "owner_uuid", evt.OwnerUUID, "error", err)
		return
	}

	if _, err := p.Import(ctx, Request{
		RelationshipID: relID,
		OwnerUUID:      ownerUUID,
		Source:         SourceNATS,
		Export: chatlog.RawExport{
			Content:    evt.Content,
			FormatHint: evt.Format,
			Contact:    evt.Contact,
		},
	}); err != nil {
		p.logger.Error("import failed", "relationship_id", evt.RelationshipID, "error", err)
	}
}

// Fingerprint identifies an export's content independent of line endings and
// surrounding whitespace.
func Fingerprint(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
