package linking

import (
	"context"

	"github.com/Ramsey-B/parklink/pkg/models"
)

// Persister stores the links produced by a pass. Implementations upsert on
// (federal_park_id, wikidata_park_id) so persisting the same links twice is a no-op
// beyond refreshing their scores.
type Persister interface {
	Persist(ctx context.Context, links []models.ParkLink) (models.PersistResult, error)
}
