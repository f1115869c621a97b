package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

// RelSameAs connects a federal park node to the knowledge-base node it denotes
const RelSameAs = "SAME_AS"

// syncBatchSize bounds the UNWIND list sent per transaction
const syncBatchSize = 500

// Each federal park keeps at most one SAME_AS edge, so edges to other
// knowledge-base parks are dropped before the current one is merged.
const syncLinksCypher = `
	UNWIND $links AS link
	MERGE (f:FederalPark {id: link.federal_park_id})
	MERGE (w:WikidataPark {id: link.wikidata_park_id})
	SET w.external_id = link.wikidata_external_id
	WITH f, w, link
	OPTIONAL MATCH (f)-[stale:SAME_AS]->(other:WikidataPark)
	WHERE other.id <> link.wikidata_park_id
	DELETE stale
	WITH DISTINCT f, w, link
	MERGE (f)-[r:SAME_AS]->(w)
	SET r.confidence = link.confidence_score,
		r.name_similarity = link.name_similarity,
		r.location_similarity = link.location_similarity,
		r.match_method = link.match_method,
		r.run_id = link.run_id
`

const sameAsCypher = `
	MATCH (f:FederalPark {id: $federal_park_id})-[r:SAME_AS]->(w:WikidataPark)
	RETURN w.id AS wikidata_park_id, w.external_id AS wikidata_external_id, r.confidence AS confidence
	LIMIT 1
`

// LinkService mirrors park links into the graph as SAME_AS edges
type LinkService struct {
	client *Client
	logger ectologger.Logger
}

// NewLinkService creates a new link service
func NewLinkService(client *Client, logger ectologger.Logger) *LinkService {
	return &LinkService{
		client: client,
		logger: logger,
	}
}

// SyncLinks merges a SAME_AS edge for every link
func (s *LinkService) SyncLinks(ctx context.Context, runID string, links []models.ParkLink) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.SyncLinks")
	defer span.End()

	for start := 0; start < len(links); start += syncBatchSize {
		end := min(start+syncBatchSize, len(links))
		params := map[string]any{"links": linkParams(runID, links[start:end])}

		_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, syncLinksCypher, params)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": runID, "count": end - start}).Error("Failed to sync links to graph")
			return errors.Wrap(err, "failed to sync links to graph")
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"run_id": runID, "count": len(links)}).Debug("Synced links to graph")
	return nil
}

// SameAs returns the knowledge-base park linked to a federal park, or nil
func (s *LinkService) SameAs(ctx context.Context, federalParkID string) (*models.ParkLink, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.SameAs")
	defer span.End()

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, sameAsCypher, map[string]any{"federal_park_id": federalParkID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}

		record := res.Record()
		link := &models.ParkLink{FederalParkID: federalParkID, MatchMethod: models.MatchMethodNameLocation}
		if v, ok := record.Get("wikidata_park_id"); ok {
			link.WikidataParkID, _ = v.(string)
		}
		if v, ok := record.Get("wikidata_external_id"); ok {
			link.WikidataExternalID, _ = v.(string)
		}
		if v, ok := record.Get("confidence"); ok {
			link.ConfidenceScore, _ = v.(float64)
		}
		return link, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read SAME_AS link")
	}

	link, _ := result.(*models.ParkLink)
	return link, nil
}

func linkParams(runID string, links []models.ParkLink) []any {
	params := make([]any, 0, len(links))
	for _, link := range links {
		params = append(params, map[string]any{
			"federal_park_id":      link.FederalParkID,
			"wikidata_park_id":     link.WikidataParkID,
			"wikidata_external_id": link.WikidataExternalID,
			"confidence_score":     link.ConfidenceScore,
			"name_similarity":      link.NameSimilarity,
			"location_similarity":  link.LocationSimilarity,
			"match_method":         link.MatchMethod,
			"run_id":               runID,
		})
	}
	return params
}
