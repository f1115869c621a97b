// Package linking drives a full pass that links federal parks to
// knowledge-base parks.
//
// The pass is greedy: federal parks are processed in input order and each
// one claims its best unclaimed candidate. An earlier claim is never revisited,
// so the outcome depends on input order and is not a globally optimal
// assignment.
package linking

import (
	"context"
	"iter"
	"sort"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/parklink/pkg/matching"
	"github.com/Ramsey-B/parklink/pkg/models"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

// Outcome is the result of evaluating a single federal park
type Outcome struct {
	Index       int // position of the park in the input
	FederalPark models.FederalPark
	Match       *models.MatchCandidate // nil when nothing reached the threshold
}

// Linker links federal parks to knowledge-base parks
type Linker struct {
	scorer *matching.Scorer
	logger ectologger.Logger
}

// NewLinker creates a new linker
func NewLinker(scorer *matching.Scorer, logger ectologger.Logger) *Linker {
	if scorer == nil {
		scorer = matching.NewScorer()
	}
	return &Linker{
		scorer: scorer,
		logger: logger,
	}
}

// Link runs one pass and returns a link for every federal park that matched,
// in federal input order. No wikidata park is linked twice.
func (l *Linker) Link(ctx context.Context, federal []models.FederalPark, wikidata []models.WikidataPark, opts Options) ([]models.ParkLink, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Linker.Link")
	defer span.End()

	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid linking options")
	}

	links := make([]models.ParkLink, 0)
	if len(federal) == 0 || len(wikidata) == 0 {
		return links, nil
	}

	log := l.logger.WithContext(ctx).WithFields(map[string]any{
		"federal_count":  len(federal),
		"wikidata_count": len(wikidata),
		"threshold":      opts.Threshold,
		"workers":        opts.Workers,
	})
	log.Debug("Starting link pass")

	var outcomes iter.Seq[Outcome]
	if opts.Workers > 1 {
		outcomes = l.parallelOutcomes(federal, wikidata, opts)
	} else {
		outcomes = l.outcomes(federal, wikidata, opts.Config)
	}

	for outcome := range outcomes {
		if outcome.Match != nil {
			links = append(links, outcome.Match.ToLink())
		}

		if opts.Progress != nil {
			err := opts.Progress(models.LinkProgress{
				Current:    outcome.Index + 1,
				Total:      len(federal),
				Matched:    len(links),
				RecordName: outcome.FederalPark.Name,
			})
			if err != nil {
				log.WithError(err).WithFields(map[string]any{"processed": outcome.Index + 1}).Warn("Link pass aborted by progress hook")
				return links, errors.Wrap(err, "link pass aborted")
			}
		}
	}

	log.WithFields(map[string]any{"linked_count": len(links)}).Debug("Finished link pass")
	return links, nil
}

// Outcomes exposes the pass as a lazy sequence of per-park outcomes.
// Each range over the sequence starts a fresh pass with an empty claimed set.
func (l *Linker) Outcomes(federal []models.FederalPark, wikidata []models.WikidataPark, cfg matching.Config) (iter.Seq[Outcome], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid linking options")
	}
	if len(wikidata) == 0 {
		return func(func(Outcome) bool) {}, nil
	}
	return l.outcomes(federal, wikidata, cfg), nil
}

func (l *Linker) outcomes(federal []models.FederalPark, wikidata []models.WikidataPark, cfg matching.Config) iter.Seq[Outcome] {
	matcher := matching.NewMatcher(l.scorer, cfg)

	return func(yield func(Outcome) bool) {
		claimed := make(map[string]struct{})

		for i, park := range federal {
			pool := ectolinq.Filter(wikidata, func(candidate models.WikidataPark) bool {
				_, ok := claimed[candidate.ID]
				return !ok
			})

			match := matcher.FindBestMatch(park, pool)
			if match != nil {
				claimed[match.WikidataPark.ID] = struct{}{}
			}

			if !yield(Outcome{Index: i, FederalPark: park, Match: match}) {
				return
			}
		}
	}
}

// parallelOutcomes scores every federal park against every wikidata park
// concurrently, then claims strictly in federal order. Each park takes its
// highest ranked unclaimed candidate with ties resolved by wikidata order,
// which is exactly what the sequential scan picks.
func (l *Linker) parallelOutcomes(federal []models.FederalPark, wikidata []models.WikidataPark, opts Options) iter.Seq[Outcome] {
	matcher := matching.NewMatcher(l.scorer, opts.Config)

	return func(yield func(Outcome) bool) {
		ranked := make([][]models.MatchCandidate, len(federal))

		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i := range federal {
			g.Go(func() error {
				ranked[i] = rankCandidates(matcher, federal[i], wikidata)
				return nil
			})
		}
		_ = g.Wait()

		claimed := make(map[string]struct{})
		for i, park := range federal {
			var match *models.MatchCandidate
			for j := range ranked[i] {
				if _, ok := claimed[ranked[i][j].WikidataPark.ID]; ok {
					continue
				}
				match = &ranked[i][j]
				claimed[match.WikidataPark.ID] = struct{}{}
				break
			}

			if !yield(Outcome{Index: i, FederalPark: park, Match: match}) {
				return
			}
		}
	}
}

// rankCandidates returns the accepted candidates for a park, best first.
// Candidates below the threshold can never be picked and are dropped.
func rankCandidates(matcher *matching.Matcher, park models.FederalPark, wikidata []models.WikidataPark) []models.MatchCandidate {
	var accepted []models.MatchCandidate
	for _, candidate := range wikidata {
		scored := matcher.Score(park, candidate)
		if matcher.Accepts(scored.OverallScore) {
			accepted = append(accepted, scored)
		}
	}

	sort.SliceStable(accepted, func(a, b int) bool {
		return accepted[a].OverallScore > accepted[b].OverallScore
	})
	return accepted
}
