package linking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/pkg/matching"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/normalizers"
)

func ptr(f float64) *float64 { return &f }

func newTestLinker() *Linker {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewLinker(matching.NewScorer(), logger)
}

func TestLink_EmptyInputs(t *testing.T) {
	l := newTestLinker()
	parks := []models.FederalPark{{ID: "a1", Name: "Zion"}}
	wiki := []models.WikidataPark{{ID: "b1", Label: "Zion"}}

	links, err := l.Link(context.Background(), nil, wiki, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.NotNil(t, links)

	links, err = l.Link(context.Background(), parks, []models.WikidataPark{}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLink_InvalidOptionsFailBeforeWork(t *testing.T) {
	l := newTestLinker()
	called := false

	opts := DefaultOptions()
	opts.Threshold = 1.5
	opts.Progress = func(models.LinkProgress) error {
		called = true
		return nil
	}

	_, err := l.Link(context.Background(),
		[]models.FederalPark{{ID: "a1", Name: "Zion"}},
		[]models.WikidataPark{{ID: "b1", Label: "Zion"}},
		opts,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, matching.ErrInvalidThreshold)
	assert.False(t, called)

	opts = DefaultOptions()
	opts.MaxDistanceKm = -5
	_, err = l.Link(context.Background(), nil, nil, opts)
	assert.ErrorIs(t, err, matching.ErrInvalidMaxDistance)
}

func TestLink_Scenarios(t *testing.T) {
	l := newTestLinker()
	ctx := context.Background()

	t.Run("near identical name and identical coordinates", func(t *testing.T) {
		federal := []models.FederalPark{{ID: "a1", Name: "Yellowstone National Park", Latitude: ptr(44.6), Longitude: ptr(-110.5)}}
		wiki := []models.WikidataPark{{ID: "b1", ExternalID: "Q180120", Label: "Yellowstone NP", Latitude: ptr(44.6), Longitude: ptr(-110.5)}}

		links, err := l.Link(ctx, federal, wiki, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "a1", links[0].FederalParkID)
		assert.Equal(t, "b1", links[0].WikidataParkID)
		assert.Equal(t, "Q180120", links[0].WikidataExternalID)
		assert.Equal(t, 1.0, links[0].LocationSimilarity)
		// the canonical form keeps "np" abbreviated, so the name only shares 13 of 23 characters
		assert.InDelta(t, (1.0-10.0/23.0)*0.7+0.3, links[0].ConfidenceScore, 1e-12)

		// opting into the park_designations pre-normalizer (LINK_NAME_PRE_NORMALIZERS) expands "NP" so the names match
		expand, _ := normalizers.Chain("park_designations")
		expanded := NewLinker(matching.NewScorer(matching.WithPreNormalizer(expand)), l.logger)
		links, err = expanded.Link(ctx, federal, wiki, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.GreaterOrEqual(t, links[0].ConfidenceScore, 0.95)
	})

	t.Run("different parks stay unlinked", func(t *testing.T) {
		federal := []models.FederalPark{{ID: "a1", Name: "Zion National Park", Latitude: ptr(37.3), Longitude: ptr(-113.0)}}
		wiki := []models.WikidataPark{{ID: "b1", ExternalID: "Q1053452", Label: "Grand Canyon National Park", Latitude: ptr(36.1), Longitude: ptr(-112.1)}}

		links, err := l.Link(ctx, federal, wiki, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("first park in order claims the shared candidate", func(t *testing.T) {
		federal := []models.FederalPark{
			{ID: "a1", Name: "Acadia National Park", Latitude: ptr(44.35), Longitude: ptr(-68.21)},
			{ID: "a2", Name: "Acadia Natl Park", Latitude: ptr(44.35), Longitude: ptr(-68.21)},
		}
		wiki := []models.WikidataPark{{ID: "b1", ExternalID: "Q335975", Label: "Acadia National Park", Latitude: ptr(44.35), Longitude: ptr(-68.21)}}

		links, err := l.Link(ctx, federal, wiki, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "a1", links[0].FederalParkID)

		// reversing the input hands the candidate to the other park
		reversed := []models.FederalPark{federal[1], federal[0]}
		links, err = l.Link(ctx, reversed, wiki, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "a2", links[0].FederalParkID)
	})

	t.Run("missing coordinates still link on an exact name", func(t *testing.T) {
		federal := []models.FederalPark{{ID: "a1", Name: "Arches National Park"}}
		wiki := []models.WikidataPark{{ID: "b1", ExternalID: "Q203079", Label: "Arches National Park", Latitude: ptr(38.68), Longitude: ptr(-109.57)}}

		links, err := l.Link(ctx, federal, wiki, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, 0.0, links[0].LocationSimilarity)
		assert.Equal(t, 1.0, links[0].NameSimilarity)
		assert.Equal(t, links[0].NameSimilarity*0.7, links[0].ConfidenceScore)
		assert.Equal(t, models.MatchMethodNameLocation, links[0].MatchMethod)
	})
}

func TestLink_GreedyIsNotOptimal(t *testing.T) {
	l := newTestLinker()

	// "Big Bend" takes its exact match first. "Big Bends" only clears the
	// threshold against that same record, so it ends up unlinked even though
	// pairing "Big Bend" with "Big Bent" would have linked both.
	federal := []models.FederalPark{
		{ID: "a1", Name: "Big Bend"},
		{ID: "a2", Name: "Big Bends"},
	}
	wiki := []models.WikidataPark{
		{ID: "b1", Label: "Big Bend"},
		{ID: "b2", Label: "Big Bent"},
	}

	opts := DefaultOptions()
	opts.Threshold = 0.55

	links, err := l.Link(context.Background(), federal, wiki, opts)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "a1", links[0].FederalParkID)
	assert.Equal(t, "b1", links[0].WikidataParkID)

	scorer := matching.NewScorer()
	alt := scorer.OverallScore(scorer.NameSimilarity("Big Bend", "Big Bent"), 0, matching.DefaultWeights())
	assert.GreaterOrEqual(t, alt, opts.Threshold)
}

func TestLink_Exclusivity(t *testing.T) {
	l := newTestLinker()
	federal, wiki := generateParks(rand.New(rand.NewSource(7)), 60, 40)

	opts := DefaultOptions()
	opts.Threshold = 0.3
	links, err := l.Link(context.Background(), federal, wiki, opts)
	require.NoError(t, err)
	require.NotEmpty(t, links)

	seen := make(map[string]string)
	for _, link := range links {
		prev, dup := seen[link.WikidataParkID]
		assert.False(t, dup, "wikidata park %s linked to %s and %s", link.WikidataParkID, prev, link.FederalParkID)
		seen[link.WikidataParkID] = link.FederalParkID
		assert.GreaterOrEqual(t, link.ConfidenceScore, opts.Threshold)
		assert.LessOrEqual(t, link.ConfidenceScore, 1.0)
	}
}

func TestLink_Deterministic(t *testing.T) {
	l := newTestLinker()
	federal, wiki := generateParks(rand.New(rand.NewSource(11)), 40, 40)

	first, err := l.Link(context.Background(), federal, wiki, DefaultOptions())
	require.NoError(t, err)
	second, err := l.Link(context.Background(), federal, wiki, DefaultOptions())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated pass differs (-first +second):\n%s", diff)
	}
}

func TestLink_ParallelMatchesSequential(t *testing.T) {
	l := newTestLinker()

	for _, seed := range []int64{1, 2, 3, 4, 5} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			federal, wiki := generateParks(rand.New(rand.NewSource(seed)), 50, 35)

			opts := DefaultOptions()
			opts.Threshold = 0.4
			sequential, err := l.Link(context.Background(), federal, wiki, opts)
			require.NoError(t, err)

			opts.Workers = 4
			parallel, err := l.Link(context.Background(), federal, wiki, opts)
			require.NoError(t, err)

			if diff := cmp.Diff(sequential, parallel); diff != "" {
				t.Errorf("parallel pass differs (-sequential +parallel):\n%s", diff)
			}
		})
	}
}

func TestLink_ParallelMatchesSequential_AntipodalCandidates(t *testing.T) {
	l := newTestLinker()
	federal := []models.FederalPark{
		{ID: "a1", Name: "Zion", Latitude: ptr(-88.5), Longitude: ptr(0)},
		{ID: "a2", Name: "Arches", Latitude: ptr(10), Longitude: ptr(20)},
	}
	wiki := []models.WikidataPark{
		{ID: "b1", Label: "Zio", Latitude: ptr(88.5), Longitude: ptr(-180)},
		{ID: "b2", Label: "Zion", Latitude: ptr(-88.5), Longitude: ptr(0)},
		{ID: "b3", Label: "Arches", Latitude: ptr(-10), Longitude: ptr(-160)},
		{ID: "b4", Label: "Arches", Latitude: ptr(10), Longitude: ptr(20)},
	}

	sequential, err := l.Link(context.Background(), federal, wiki, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, sequential, 2)
	assert.Equal(t, "b2", sequential[0].WikidataParkID)
	assert.Equal(t, "b4", sequential[1].WikidataParkID)

	opts := DefaultOptions()
	opts.Workers = 4
	parallel, err := l.Link(context.Background(), federal, wiki, opts)
	require.NoError(t, err)
	if diff := cmp.Diff(sequential, parallel); diff != "" {
		t.Errorf("parallel pass differs (-sequential +parallel):\n%s", diff)
	}
}

func TestLink_Progress(t *testing.T) {
	l := newTestLinker()
	federal := []models.FederalPark{
		{ID: "a1", Name: "Zion National Park"},
		{ID: "a2", Name: "Nowhere"},
		{ID: "a3", Name: "Arches National Park"},
	}
	wiki := []models.WikidataPark{
		{ID: "b1", Label: "Arches National Park"},
		{ID: "b2", Label: "Zion National Park"},
	}

	var updates []models.LinkProgress
	opts := DefaultOptions()
	opts.Progress = func(p models.LinkProgress) error {
		updates = append(updates, p)
		return nil
	}

	links, err := l.Link(context.Background(), federal, wiki, opts)
	require.NoError(t, err)
	require.Len(t, links, 2)

	expected := []models.LinkProgress{
		{Current: 1, Total: 3, Matched: 1, RecordName: "Zion National Park"},
		{Current: 2, Total: 3, Matched: 1, RecordName: "Nowhere"},
		{Current: 3, Total: 3, Matched: 2, RecordName: "Arches National Park"},
	}
	assert.Equal(t, expected, updates)
}

func TestLink_ProgressErrorAborts(t *testing.T) {
	l := newTestLinker()
	federal := []models.FederalPark{
		{ID: "a1", Name: "Zion National Park"},
		{ID: "a2", Name: "Arches National Park"},
	}
	wiki := []models.WikidataPark{
		{ID: "b1", Label: "Zion National Park"},
		{ID: "b2", Label: "Arches National Park"},
	}

	stop := errors.New("stop")
	opts := DefaultOptions()
	opts.Progress = func(p models.LinkProgress) error {
		if p.Current == 1 {
			return stop
		}
		return nil
	}

	links, err := l.Link(context.Background(), federal, wiki, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, stop)
	require.Len(t, links, 1)
	assert.Equal(t, "a1", links[0].FederalParkID)
}

func TestCancelOnDone(t *testing.T) {
	l := newTestLinker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Progress = CancelOnDone(ctx, nil)

	_, err := l.Link(context.Background(),
		[]models.FederalPark{{ID: "a1", Name: "Zion"}},
		[]models.WikidataPark{{ID: "b1", Label: "Zion"}},
		opts,
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEveryN(t *testing.T) {
	var seen []int
	fn := EveryN(2, func(p models.LinkProgress) error {
		seen = append(seen, p.Current)
		return nil
	})

	for i := 1; i <= 5; i++ {
		require.NoError(t, fn(models.LinkProgress{Current: i, Total: 5}))
	}
	assert.Equal(t, []int{2, 4, 5}, seen)
}

func TestOutcomes(t *testing.T) {
	l := newTestLinker()
	federal := []models.FederalPark{
		{ID: "a1", Name: "Zion National Park"},
		{ID: "a2", Name: "Zion National Park"},
	}
	wiki := []models.WikidataPark{{ID: "b1", Label: "Zion National Park"}}

	seq, err := l.Outcomes(federal, wiki, matching.DefaultConfig())
	require.NoError(t, err)

	var outcomes []Outcome
	for o := range seq {
		outcomes = append(outcomes, o)
	}
	require.Len(t, outcomes, 2)
	require.NotNil(t, outcomes[0].Match)
	assert.Equal(t, "b1", outcomes[0].Match.WikidataPark.ID)
	assert.Nil(t, outcomes[1].Match)

	// ranging again starts a fresh pass
	for o := range seq {
		require.NotNil(t, o.Match)
		break
	}

	_, err = l.Outcomes(federal, wiki, matching.Config{Threshold: 2, MaxDistanceKm: 100, Weights: matching.DefaultWeights()})
	assert.ErrorIs(t, err, matching.ErrInvalidThreshold)
}

var nameParts = []string{"Glacier", "Bay", "Rocky", "Mountain", "Grand", "Canyon", "Zion", "Arches", "Lake", "Crater", "Big", "Bend", "Sequoia", "Park", "National"}

// generateParks builds overlapping federal and wikidata lists with near-duplicate
// names, shared coordinates and deliberate score ties.
func generateParks(r *rand.Rand, federalCount, wikidataCount int) ([]models.FederalPark, []models.WikidataPark) {
	name := func() string {
		n := 1 + r.Intn(3)
		s := ""
		for i := 0; i < n; i++ {
			if i > 0 {
				s += " "
			}
			s += nameParts[r.Intn(len(nameParts))]
		}
		return s
	}
	coord := func() (*float64, *float64) {
		if r.Intn(4) == 0 {
			return nil, nil
		}
		return ptr(float64(30 + r.Intn(5))), ptr(float64(-110 - r.Intn(5)))
	}

	federal := make([]models.FederalPark, federalCount)
	for i := range federal {
		lat, lng := coord()
		federal[i] = models.FederalPark{ID: fmt.Sprintf("a%d", i), Name: name(), Latitude: lat, Longitude: lng}
	}
	wiki := make([]models.WikidataPark, wikidataCount)
	for i := range wiki {
		lat, lng := coord()
		wiki[i] = models.WikidataPark{ID: fmt.Sprintf("b%d", i), ExternalID: fmt.Sprintf("Q%d", 1000+i), Label: name(), Latitude: lat, Longitude: lng}
	}
	return federal, wiki
}
