// Package syncer runs sync passes: fetch documents, reconcile them into the
// vault, and maintain the daily note. At most one pass runs at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/dailynote"
	"github.com/starford/granola-sync/internal/index"
	"github.com/starford/granola-sync/internal/metrics"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/storage"
)

// Source lists the remote documents of one run. On a partial failure it
// returns the documents collected so far together with the error.
type Source interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

// Events receives status and note notifications.
type Events interface {
	PublishStatus(status any)
	PublishNoteEvent(kind, path string)
}

// DailyNoteConfig controls the daily note section.
type DailyNoteConfig struct {
	Enabled    bool
	Directory  string
	DateFormat string
	Heading    string
}

// Config configures a Service.
type Config struct {
	Reconcile   reconcile.Options
	DailyNote   DailyNoteConfig
	StatusReset time.Duration
}

// NoteDiff is a planned or performed change to a single vault file.
type NoteDiff struct {
	Path   string
	Before string
	After  string
}

// Report is the outcome of one pass.
type Report struct {
	*reconcile.Result
	// DailyNote is set when the daily note changed.
	DailyNote *NoteDiff
	Duration  time.Duration
}

// Service owns the run guard and status of the sync pipeline.
type Service struct {
	source  Source
	store   storage.Provider
	cfg     Config
	db      *index.DB
	fetch   reconcile.Fetcher
	metrics *metrics.Metrics
	events  Events
	now     func() time.Time
	logger  *slog.Logger

	running sync.Mutex
	status  *Tracker
}

// Option customizes a Service.
type Option func(*Service)

// WithIndex uses db for granola_id lookups and refreshes it before each run.
func WithIndex(db *index.DB) Option {
	return func(s *Service) { s.db = db }
}

// WithFetcher sets the source of transcripts and attachments.
func WithFetcher(f reconcile.Fetcher) Option {
	return func(s *Service) { s.fetch = f }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEvents publishes status and note events.
func WithEvents(e Events) Option {
	return func(s *Service) { s.events = e }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(source Source, store storage.Provider, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		source: source,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.status = NewTracker(cfg.StatusReset, func(st Status) {
		if s.events != nil {
			s.events.PublishStatus(st)
		}
	})
	return s
}

// Status returns the current run status.
func (s *Service) Status() Status { return s.status.Status() }

// Close stops pending status timers.
func (s *Service) Close() { s.status.Stop() }

// Sync performs one pass. It returns apperr.ErrSyncInProgress without
// waiting when another pass is active. A non-nil Report may accompany an
// error when the listing failed part way.
func (s *Service) Sync(ctx context.Context, dryRun bool) (*Report, error) {
	if !s.running.TryLock() {
		return nil, apperr.ErrSyncInProgress
	}
	defer s.running.Unlock()

	started := s.now()
	s.status.Start(started)
	s.metrics.RunStarted()
	s.logger.Info("sync: run started", slog.Bool("dry_run", dryRun))

	rep, err := s.run(ctx, dryRun)

	ended := s.now()
	synced := 0
	if rep != nil {
		rep.Duration = ended.Sub(started)
		synced = rep.SyncedCount()
	}
	if err != nil {
		s.status.Fail(ended, synced, err)
		s.metrics.RunFinished("error", ended.Sub(started), ended)
		s.logger.Error("sync: run failed",
			slog.Int("synced", synced),
			slog.String("error", err.Error()))
		return rep, err
	}
	s.status.Complete(ended, synced)
	s.metrics.RunFinished("complete", ended.Sub(started), ended)
	s.logger.Info("sync: run complete",
		slog.Int("synced", synced),
		slog.Int("created", rep.Count(reconcile.ActionCreated)),
		slog.Int("updated", rep.Count(reconcile.ActionUpdated)+rep.Count(reconcile.ActionPartial)),
		slog.Int("failed", rep.Count(reconcile.ActionFailed)),
		slog.Duration("duration", rep.Duration))
	return rep, nil
}

func (s *Service) run(ctx context.Context, dryRun bool) (*Report, error) {
	if s.db != nil {
		if err := index.Sync(s.db, s.store, s.logger); err != nil {
			s.logger.Warn("sync: index refresh failed", slog.String("error", err.Error()))
		}
	}

	docs, fetchErr := s.source.ListDocuments(ctx)
	if fetchErr != nil {
		fetchErr = fmt.Errorf("syncer: list documents: %w", fetchErr)
		if len(docs) == 0 {
			return nil, fetchErr
		}
		s.logger.Warn("sync: listing incomplete, reconciling collected documents",
			slog.Int("documents", len(docs)),
			slog.String("error", fetchErr.Error()))
	}

	var opts []reconcile.Option
	if s.fetch != nil {
		opts = append(opts, reconcile.WithFetcher(s.fetch))
	}
	if s.db != nil {
		opts = append(opts, reconcile.WithLookup(s.db))
	}
	opts = append(opts, reconcile.WithClock(s.now))
	engine := reconcile.New(s.store, s.cfg.Reconcile, s.logger, opts...)

	rep := &Report{Result: engine.Run(ctx, docs, dryRun)}
	for _, ch := range rep.Changes {
		s.metrics.Document(string(ch.Action))
		if dryRun || !ch.Action.Wrote() {
			continue
		}
		s.metrics.AttachmentsWritten(len(ch.Attachments))
		if s.events != nil {
			kind := string(index.EventUpdated)
			if ch.Action == reconcile.ActionCreated {
				kind = string(index.EventCreated)
			}
			s.events.PublishNoteEvent(kind, ch.Path)
		}
	}

	if s.cfg.DailyNote.Enabled {
		diff, err := s.updateDailyNote(rep.Synced(), dryRun)
		if err != nil {
			s.logger.Warn("sync: daily note not updated", slog.String("error", err.Error()))
		}
		rep.DailyNote = diff
	}

	if fetchErr != nil {
		return rep, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// updateDailyNote rewrites the meetings section of today's daily note with
// the synced notes that started today.
func (s *Service) updateDailyNote(notes []models.SyncedNote, dryRun bool) (*NoteDiff, error) {
	loc := s.cfg.Reconcile.Location
	if loc == nil {
		loc = time.Local
	}
	today := s.now().In(loc)
	y, m, d := today.Date()

	var entries []dailynote.Entry
	for _, n := range notes {
		if n.Start.IsZero() {
			continue
		}
		ny, nm, nd := n.Start.In(loc).Date()
		if ny != y || nm != m || nd != d {
			continue
		}
		entries = append(entries, dailynote.Entry{Start: n.Start, Path: n.Path, Title: n.Title})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	p := dailynote.Path(s.cfg.DailyNote.Directory, s.cfg.DailyNote.DateFormat, today)
	var before string
	data, err := s.store.Read(p)
	switch {
	case err == nil:
		before = string(data)
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, fmt.Errorf("syncer: read daily note: %w", err)
	}

	after := dailynote.UpsertSection(before, s.cfg.DailyNote.Heading, dailynote.Lines(entries, loc))
	if after == before {
		return nil, nil
	}
	if !dryRun {
		if err := s.store.Write(p, []byte(after)); err != nil {
			return nil, fmt.Errorf("syncer: write daily note: %w", err)
		}
		s.logger.Debug("sync: daily note updated",
			slog.String("path", p),
			slog.Int("meetings", len(entries)))
	}
	return &NoteDiff{Path: p, Before: before, After: after}, nil
}
