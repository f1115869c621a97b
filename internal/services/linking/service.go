// Package linking runs link passes end to end: it loads both park sources,
// runs the linker, persists the links and fans the result out to the graph,
// Kafka and metrics.
package linking

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/fingerprint"
	engine "github.com/Ramsey-B/parklink/pkg/linking"
	"github.com/Ramsey-B/parklink/pkg/metrics"
	"github.com/Ramsey-B/parklink/pkg/models"
	parkredis "github.com/Ramsey-B/parklink/pkg/redis"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

const runLockKey = "link-run"

// ErrRunInProgress is returned when another link run holds the run lock
var ErrRunInProgress = httperror.NewHTTPError(http.StatusConflict, "a link run is already in progress")

type FederalSource interface {
	List(ctx context.Context) ([]models.FederalPark, error)
}

type WikidataSource interface {
	List(ctx context.Context) ([]models.WikidataPark, error)
}

type RunStore interface {
	Create(ctx context.Context, run *models.LinkRun) (*models.LinkRun, error)
	Complete(ctx context.Context, id string, linkedCount int, rowsAffected int64) error
	Fail(ctx context.Context, id string, message string) error
	Get(ctx context.Context, id string) (*models.LinkRun, error)
	ListRecent(ctx context.Context, limit int) ([]models.LinkRun, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (parkredis.Lease, error)
}

type ProgressStore interface {
	Save(ctx context.Context, progress models.LinkProgress) error
	Get(ctx context.Context, runID string) (*models.LinkProgress, error)
}

type GraphSyncer interface {
	SyncLinks(ctx context.Context, runID string, links []models.ParkLink) error
}

type EventEmitter interface {
	EmitParksLinked(ctx context.Context, runID string, links []models.ParkLink) error
	EmitRunFinished(ctx context.Context, run *models.LinkRun) error
}

// Dependencies wires the service. Locker, Progress, Graph and Events are optional.
type Dependencies struct {
	Federal   FederalSource
	Wikidata  WikidataSource
	Runs      RunStore
	Persister engine.Persister
	Linker    *engine.Linker
	Locker    Locker
	Progress  ProgressStore
	Graph     GraphSyncer
	Events    EventEmitter
}

// Config contains configuration for the link run service
type Config struct {
	Options       engine.Options
	LockTTL       time.Duration
	ProgressEvery int // persist progress every n parks
}

// Service runs link passes
type Service struct {
	deps   Dependencies
	cfg    Config
	logger ectologger.Logger
}

// NewService creates a new link run service
func NewService(deps Dependencies, cfg Config, logger ectologger.Logger) *Service {
	if deps.Locker == nil {
		deps.Locker = &localLocker{}
	}
	if deps.Progress == nil {
		deps.Progress = newMemoryProgressStore()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 1
	}

	return &Service{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
}

// Options returns the configured options with the request overrides applied
func (s *Service) Options(req models.StartLinkRunRequest) engine.Options {
	opts := s.cfg.Options
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.MaxDistanceKm != nil {
		opts.MaxDistanceKm = *req.MaxDistanceKm
	}
	if req.NameWeight != nil {
		opts.Weights.Name = *req.NameWeight
	}
	if req.LocationWeight != nil {
		opts.Weights.Location = *req.LocationWeight
	}
	return opts
}

// Run executes one link pass. Only one pass runs at a time.
func (s *Service) Run(ctx context.Context, req models.StartLinkRunRequest) (*models.LinkRun, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.Run")
	defer span.End()

	opts := s.Options(req)
	if err := opts.Validate(); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lease, err := s.deps.Locker.TryLock(ctx, runLockKey, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, parkredis.ErrLockNotAcquired) {
			return nil, ErrRunInProgress
		}
		return nil, errors.Wrap(err, "failed to take link run lock")
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to release link run lock")
		}
	}()

	federal, err := s.deps.Federal.List(ctx)
	if err != nil {
		return nil, err
	}
	wikidata, err := s.deps.Wikidata.List(ctx)
	if err != nil {
		return nil, err
	}

	run, err := s.deps.Runs.Create(ctx, &models.LinkRun{
		Threshold:        opts.Threshold,
		MaxDistanceKm:    opts.MaxDistanceKm,
		NameWeight:       opts.Weights.Name,
		LocationWeight:   opts.Weights.Location,
		InputFingerprint: fingerprint.Generate(federal, wikidata, opts.Config),
		FederalCount:     len(federal),
		WikidataCount:    len(wikidata),
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":         run.ID,
		"federal_count":  len(federal),
		"wikidata_count": len(wikidata),
	})
	log.Info("Starting link run")

	started := time.Now()
	opts.Progress = engine.CancelOnDone(ctx, engine.EveryN(s.cfg.ProgressEvery, func(p models.LinkProgress) error {
		p.RunID = run.ID
		if err := s.deps.Progress.Save(ctx, p); err != nil {
			log.WithError(err).Warn("Failed to save link run progress")
		}
		if err := lease.Extend(ctx, s.cfg.LockTTL); err != nil {
			if errors.Is(err, parkredis.ErrLockNotHeld) {
				return errors.Wrap(err, "link run lock lost")
			}
			log.WithError(err).Warn("Failed to extend link run lock")
		}
		return nil
	}))

	links, err := s.deps.Linker.Link(ctx, federal, wikidata, opts)
	if err != nil {
		return s.fail(ctx, run, started, errors.Wrap(err, "linking failed"))
	}
	for i := range links {
		links[i].RunID = &run.ID
	}

	result, err := s.deps.Persister.Persist(ctx, links)
	if err != nil {
		return s.fail(ctx, run, started, err)
	}

	if s.deps.Graph != nil {
		if err := s.deps.Graph.SyncLinks(ctx, run.ID, links); err != nil {
			log.WithError(err).Warn("Graph sync failed, links are persisted")
		}
	}
	if s.deps.Events != nil {
		if err := s.deps.Events.EmitParksLinked(ctx, run.ID, links); err != nil {
			log.WithError(err).Warn("Failed to emit park.linked events")
		}
	}

	if err := s.deps.Runs.Complete(ctx, run.ID, len(links), result.RowsAffected); err != nil {
		return s.fail(ctx, run, started, err)
	}

	finished := time.Now().UTC()
	run.Status = models.LinkRunStatusCompleted
	run.LinkedCount = len(links)
	run.RowsAffected = result.RowsAffected
	run.FinishedAt = &finished

	confidences := ectolinq.Map(links, func(link models.ParkLink) float64 {
		return link.ConfidenceScore
	})
	metrics.RecordLinkRun(run.Status, time.Since(started).Seconds(), len(federal), confidences)
	s.emitRunFinished(ctx, run)

	log.WithFields(map[string]any{
		"linked_count":  run.LinkedCount,
		"rows_affected": run.RowsAffected,
		"duration_ms":   time.Since(started).Milliseconds(),
	}).Info("Completed link run")

	return run, nil
}

// fail records the failure on the run and returns it with cause
func (s *Service) fail(ctx context.Context, run *models.LinkRun, started time.Time, cause error) (*models.LinkRun, error) {
	// the run must be marked failed even when ctx was cancelled
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()

	s.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{"run_id": run.ID}).Error("Link run failed")

	if err := s.deps.Runs.Fail(ctx, run.ID, message); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": run.ID}).Error("Failed to mark link run failed")
	}

	finished := time.Now().UTC()
	run.Status = models.LinkRunStatusFailed
	run.Error = &message
	run.FinishedAt = &finished

	metrics.RecordLinkRun(run.Status, time.Since(started).Seconds(), 0, nil)
	s.emitRunFinished(ctx, run)

	return run, cause
}

func (s *Service) emitRunFinished(ctx context.Context, run *models.LinkRun) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.EmitRunFinished(ctx, run); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit link run event")
	}
}

// Get returns a link run by id
func (s *Service) Get(ctx context.Context, id string) (*models.LinkRun, error) {
	return s.deps.Runs.Get(ctx, id)
}

// ListRecent returns the most recent link runs
func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.LinkRun, error) {
	return s.deps.Runs.ListRecent(ctx, limit)
}

// Progress returns the latest progress snapshot of a run
func (s *Service) Progress(ctx context.Context, runID string) (*models.LinkProgress, error) {
	progress, err := s.deps.Progress.Get(ctx, runID)
	if errors.Is(err, parkredis.ErrProgressNotFound) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "no progress recorded for link run "+runID)
	}
	return progress, err
}

// localLocker serialises runs within one process when no shared lock is configured
type localLocker struct {
	mu sync.Mutex
}

func (l *localLocker) TryLock(_ context.Context, _ string, _ time.Duration) (parkredis.Lease, error) {
	if !l.mu.TryLock() {
		return nil, parkredis.ErrLockNotAcquired
	}
	return localLease{mu: &l.mu}, nil
}

// localLease never expires, so Extend has nothing to do
type localLease struct {
	mu *sync.Mutex
}

func (l localLease) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}

func (localLease) Extend(context.Context, time.Duration) error {
	return nil
}

type memoryProgressStore struct {
	mu    sync.RWMutex
	byRun map[string]models.LinkProgress
}

func newMemoryProgressStore() *memoryProgressStore {
	return &memoryProgressStore{byRun: make(map[string]models.LinkProgress)}
}

func (m *memoryProgressStore) Save(_ context.Context, progress models.LinkProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRun[progress.RunID] = progress
	return nil
}

func (m *memoryProgressStore) Get(_ context.Context, runID string) (*models.LinkProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	progress, ok := m.byRun[runID]
	if !ok {
		return nil, parkredis.ErrProgressNotFound
	}
	return &progress, nil
}
