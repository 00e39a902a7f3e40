// Package ingest imports usage exports into storage without duplicating days.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jgoulah/gridprice/internal/usagecsv"
	"github.com/jgoulah/gridprice/pkg/models"
)

// Kind selects the export format
type Kind string

const (
	KindDaily    Kind = "daily"
	KindInterval Kind = "interval"
)

// ParseKind validates a user supplied format name
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindDaily, "":
		return KindDaily, nil
	case KindInterval:
		return KindInterval, nil
	}
	return "", fmt.Errorf("unknown file type %q (available: daily, interval)", s)
}

// Store persists a parsed batch atomically
type Store interface {
	ImportUsage(ctx context.Context, rows []models.UsageObservation, record models.ImportRecord) (models.ImportRecord, error)
}

// Service parses exports and stores them
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates an ingestion service
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "ingest").Logger(),
		now:   time.Now,
	}
}

// Import parses the whole body and stores it in one batch. A parse error
// aborts before anything is written. Days already stored are counted as skipped.
func (s *Service) Import(ctx context.Context, kind Kind, source string, body io.Reader) (models.ImportRecord, error) {
	var rows []models.UsageObservation
	var err error
	switch kind {
	case KindInterval:
		rows, err = usagecsv.ParseInterval(body)
	case KindDaily:
		rows, err = usagecsv.ParseDaily(body)
	default:
		return models.ImportRecord{}, fmt.Errorf("unknown file type %q", kind)
	}
	if err != nil {
		return models.ImportRecord{}, fmt.Errorf("parsing %s: %w", source, err)
	}

	record, err := s.store.ImportUsage(ctx, rows, models.ImportRecord{
		ID:        uuid.NewString(),
		Source:    source,
		Kind:      string(kind),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return models.ImportRecord{}, fmt.Errorf("storing %s: %w", source, err)
	}

	s.log.Info().
		Str("import_id", record.ID).
		Str("source", source).
		Str("kind", record.Kind).
		Int("imported", record.Imported).
		Int("skipped", record.Skipped).
		Msg("imported usage")

	return record, nil
}
