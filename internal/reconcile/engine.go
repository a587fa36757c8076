// Package reconcile decides, for each remote meeting document, whether its
// vault note is created, rewritten, partially updated, or left alone, and
// performs that write at most once per document per run.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/filename"
	"github.com/starford/granola-sync/internal/frontmatter"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/parser"
	"github.com/starford/granola-sync/internal/storage"
)

// CollisionPolicy decides what happens when the generated path belongs to
// another document.
type CollisionPolicy string

const (
	CollisionSkip      CollisionPolicy = "skip"
	CollisionTimestamp CollisionPolicy = "timestamp"
)

// Valid reports whether p is a known policy.
func (p CollisionPolicy) Valid() bool {
	return p == CollisionSkip || p == CollisionTimestamp
}

// DefaultAttachmentsDirectory is relative to the sync directory.
const DefaultAttachmentsDirectory = "attachments"

// Fetcher loads the parts of a document that are not part of the listing.
type Fetcher interface {
	Transcript(ctx context.Context, documentID string) ([]models.TranscriptSegment, error)
	Attachment(ctx context.Context, url string) ([]byte, error)
}

// Options configures a reconciliation run.
type Options struct {
	Directory            string
	Filename             filename.Options
	Collision            CollisionPolicy
	SkipExisting         bool
	IncludeMyNotes       bool
	IncludeEnhancedNotes bool
	IncludeTranscript    bool
	DownloadAttachments  bool
	AttachmentsDirectory string
	Frontmatter          frontmatter.Options
	Location             *time.Location
}

// Engine reconciles documents against the vault. Documents of one run are
// processed strictly one after another.
type Engine struct {
	store  storage.Provider
	lookup Lookup
	fetch  Fetcher
	opts   Options
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFetcher sets the source of transcripts and attachment bytes.
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) { e.fetch = f }
}

// WithLookup sets the granola_id lookup. The default scans the directory.
func WithLookup(l Lookup) Option {
	return func(e *Engine) { e.lookup = l }
}

// New creates an Engine writing through store.
func New(store storage.Provider, opts Options, logger *slog.Logger, options ...Option) *Engine {
	if opts.Collision == "" {
		opts.Collision = CollisionTimestamp
	}
	if opts.AttachmentsDirectory == "" {
		opts.AttachmentsDirectory = DefaultAttachmentsDirectory
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	opts.Filename.Location = loc
	opts.Frontmatter.Location = loc

	e := &Engine{
		store:  store,
		lookup: ScanLookup{Store: store},
		opts:   opts,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Run reconciles docs in order. A failing document is logged and recorded
// without stopping the run. In a dry run nothing is written and no
// attachment is downloaded, but later documents see earlier planned writes.
func (e *Engine) Run(ctx context.Context, docs []models.Document, dryRun bool) *Result {
	ws := newWorkspace(e.store, e.lookup, e.opts.Directory, dryRun)
	res := &Result{DryRun: dryRun}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("reconcile: run cancelled", slog.String("error", err.Error()))
			break
		}
		doc := &docs[i]
		ch, err := e.process(ctx, ws, doc)
		ch.GranolaID = doc.ID
		ch.Title = doc.Title
		ch.Start = startTime(doc)
		switch {
		case errors.Is(err, apperr.ErrNoContent):
			ch.Err = err
			e.logger.Debug("reconcile: no content yet", slog.String("granola_id", doc.ID))
		case err != nil:
			ch.Err = err
			if ch.Action == "" {
				ch.Action = ActionFailed
			}
			e.logger.Warn("reconcile: document not synced",
				slog.String("granola_id", doc.ID),
				slog.String("title", doc.Title),
				slog.String("action", string(ch.Action)),
				slog.String("error", err.Error()))
		default:
			e.logger.Debug("reconcile: document done",
				slog.String("granola_id", doc.ID),
				slog.String("path", ch.Path),
				slog.String("action", string(ch.Action)))
		}
		res.Changes = append(res.Changes, ch)
	}
	return res
}

func (e *Engine) process(ctx context.Context, ws *workspace, doc *models.Document) (ch Change, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = Change{Action: ActionFailed}, fmt.Errorf("reconcile: panic: %v", r)
		}
	}()

	if strings.TrimSpace(doc.ID) == "" {
		return Change{Action: ActionFailed}, errors.New("reconcile: document without id")
	}
	secs := e.render(doc)
	if secs.empty() && !secs.fetchTranscript {
		return Change{Action: ActionSkipped}, apperr.ErrNoContent
	}

	existing, err := ws.find(doc.ID)
	if err != nil {
		return Change{Action: ActionFailed}, fmt.Errorf("reconcile: lookup: %w", err)
	}
	if existing != "" {
		return e.update(ctx, ws, doc, secs, existing)
	}

	base := filename.Generate(doc, e.opts.Filename)
	target := e.notePath(base)
	taken, err := ws.exists(target)
	if err != nil {
		return Change{Action: ActionFailed}, err
	}
	if taken {
		data, err := ws.read(target)
		if err != nil {
			return Change{Action: ActionFailed}, err
		}
		if parser.GranolaID(data) == doc.ID {
			return e.update(ctx, ws, doc, secs, target)
		}
		if e.opts.Collision != CollisionTimestamp {
			return Change{Action: ActionSkipped, Path: target}, fmt.Errorf("%w: %s", apperr.ErrCollision, target)
		}
		target = e.notePath(filename.WithSuffix(base, e.separator(), e.now()))
		if taken, err = ws.exists(target); err != nil {
			return Change{Action: ActionFailed}, err
		}
		if taken {
			return Change{Action: ActionSkipped, Path: target}, fmt.Errorf("%w: %s", apperr.ErrCollision, target)
		}
	}
	return e.create(ctx, ws, doc, secs, target)
}

func (e *Engine) create(ctx context.Context, ws *workspace, doc *models.Document, secs sections, target string) (Change, error) {
	if err := e.loadTranscript(ctx, doc, &secs); err != nil {
		return Change{Action: ActionFailed, Path: target}, err
	}
	if secs.empty() {
		return Change{Action: ActionSkipped}, apperr.ErrNoContent
	}
	var written []string
	secs.attachments, written = e.download(ctx, ws, secs.attachments)
	content := e.fullContent(doc, secs)
	ch := Change{Action: ActionCreated, Path: target, After: content, Attachments: written}
	if err := ws.write(target, []byte(content), true); err != nil {
		e.rollback(ws, written)
		return Change{Action: ActionFailed, Path: target}, fmt.Errorf("reconcile: create: %w", err)
	}
	e.remember(ws, doc.ID, target, content)
	return ch, nil
}

// update handles a document that already has a note at target.
func (e *Engine) update(ctx context.Context, ws *workspace, doc *models.Document, secs sections, target string) (Change, error) {
	data, err := ws.read(target)
	if err != nil {
		return Change{Action: ActionFailed, Path: target}, err
	}
	before := string(data)
	ch := Change{Path: target, Before: before}

	var block *frontmatter.Block
	if e.opts.SkipExisting {
		var stored string
		block, _, err = frontmatter.Parse(before)
		if err != nil {
			return Change{Action: ActionFailed, Path: target}, fmt.Errorf("reconcile: read header: %w", err)
		}
		stored, _ = block.Scalar(frontmatter.FieldNoteEnded)
		if !e.newer(doc, stored) {
			ch.Action = ActionUnchanged
			e.remember(ws, doc.ID, target, before)
			return ch, nil
		}
	}

	if err := e.loadTranscript(ctx, doc, &secs); err != nil {
		return Change{Action: ActionFailed, Path: target}, err
	}
	if secs.empty() {
		return Change{Action: ActionSkipped, Path: target}, apperr.ErrNoContent
	}

	var written []string
	secs.attachments, written = e.download(ctx, ws, secs.attachments)
	ch.Attachments = written

	var content string
	if block != nil {
		fm := frontmatter.NewBuilder(doc, e.opts.Frontmatter)
		block.Set(frontmatter.FieldNoteEnded, fm.Field(frontmatter.FieldNoteEnded))
		content = block.String() + "\n" + Body(doc.Title, secs)
		ch.Action = ActionPartial
	} else {
		content = e.fullContent(doc, secs)
		ch.Action = ActionUpdated
	}

	if content == before {
		ch.Action = ActionUnchanged
		e.remember(ws, doc.ID, target, before)
		return ch, nil
	}
	if err := ws.write(target, []byte(content), false); err != nil {
		e.rollback(ws, written)
		return Change{Action: ActionFailed, Path: target}, fmt.Errorf("reconcile: update: %w", err)
	}
	ch.After = content
	e.remember(ws, doc.ID, target, content)
	return ch, nil
}

// newer reports whether doc was updated after the stored noteEnded value,
// compared at minute precision. A missing or unreadable value never blocks
// the update.
func (e *Engine) newer(doc *models.Document, stored string) bool {
	last, err := time.ParseInLocation(frontmatter.TimestampLayout, strings.TrimSpace(stored), e.loc)
	if err != nil {
		return true
	}
	current := frontmatter.LastUpdated(doc).In(e.loc).Truncate(time.Minute)
	return current.After(last)
}

func (e *Engine) fullContent(doc *models.Document, secs sections) string {
	return frontmatter.NewBuilder(doc, e.opts.Frontmatter).Build() + "\n" + Body(doc.Title, secs)
}

func (e *Engine) rollback(ws *workspace, written []string) {
	for _, p := range written {
		if err := ws.remove(p); err != nil {
			e.logger.Warn("reconcile: attachment rollback failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) remember(ws *workspace, id, target, content string) {
	if err := ws.remember(id, target, []byte(content)); err != nil {
		e.logger.Warn("reconcile: index update failed", slog.String("path", target), slog.String("error", err.Error()))
	}
}

func (e *Engine) notePath(base string) string {
	return path.Join(e.opts.Directory, base+".md")
}

func (e *Engine) separator() string {
	if e.opts.Filename.Separator == "" {
		return filename.DefaultSeparator
	}
	return e.opts.Filename.Separator
}

func startTime(doc *models.Document) time.Time {
	if doc.Calendar != nil && !doc.Calendar.Start.IsZero() {
		return doc.Calendar.Start
	}
	return doc.CreatedAt
}
