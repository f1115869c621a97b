// Package events handles event emission for link runs
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/parklink/pkg/kafka"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventParkLinked       = "park.linked"
	EventLinkRunCompleted = "link_run.completed"
	EventLinkRunFailed    = "link_run.failed"
)

// Emitter handles event emission for link runs
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitParksLinked emits one park.linked event per link
func (e *Emitter) EmitParksLinked(ctx context.Context, runID string, links []models.ParkLink) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitParksLinked")
	defer span.End()

	events := make([]*kafka.LinkEvent, 0, len(links))
	for _, link := range links {
		events = append(events, &kafka.LinkEvent{
			EventType:          EventParkLinked,
			RunID:              runID,
			FederalParkID:      link.FederalParkID,
			WikidataParkID:     link.WikidataParkID,
			WikidataExternalID: link.WikidataExternalID,
			ConfidenceScore:    link.ConfidenceScore,
			NameSimilarity:     link.NameSimilarity,
			LocationSimilarity: link.LocationSimilarity,
			MatchMethod:        link.MatchMethod,
		})
	}

	if err := e.producer.PublishLinkEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit park.linked events")
		return err
	}

	return nil
}

// EmitRunFinished emits link_run.completed or link_run.failed depending on the run status
func (e *Emitter) EmitRunFinished(ctx context.Context, run *models.LinkRun) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunFinished")
	defer span.End()

	eventType := EventLinkRunCompleted
	if run.Status == models.LinkRunStatusFailed {
		eventType = EventLinkRunFailed
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version":    SchemaVersion,
		"threshold":         run.Threshold,
		"max_distance_km":   run.MaxDistanceKm,
		"input_fingerprint": run.InputFingerprint,
		"rows_affected":     run.RowsAffected,
	})

	event := &kafka.RunEvent{
		EventType:     eventType,
		RunID:         run.ID,
		Status:        run.Status,
		FederalCount:  run.FederalCount,
		WikidataCount: run.WikidataCount,
		LinkedCount:   run.LinkedCount,
		Data:          data,
	}
	if run.Error != nil {
		event.Error = *run.Error
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}
