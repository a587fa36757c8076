package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/filename"
	"github.com/starford/granola-sync/internal/frontmatter"
	"github.com/starford/granola-sync/internal/metadata"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/storage"
	"github.com/starford/granola-sync/internal/testutil"
)

var (
	standupStart = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	reviewStart  = time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC)
	evening      = time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
)

type staticSource struct {
	docs []models.Document
	err  error
}

func (s staticSource) ListDocuments(context.Context) ([]models.Document, error) {
	return s.docs, s.err
}

// blockingSource holds the run open until release is closed.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) ListDocuments(ctx context.Context) ([]models.Document, error) {
	close(s.entered)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

type recordedEvents struct {
	mu       sync.Mutex
	statuses []State
	notes    []string
}

func (r *recordedEvents) PublishStatus(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, v.(Status).State)
}

func (r *recordedEvents) PublishNoteEvent(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, kind+" "+path)
}

func testConfig() Config {
	return Config{
		Reconcile: reconcile.Options{
			Directory:            "Meetings",
			Filename:             filename.Options{SlashReplacement: "-"},
			Collision:            reconcile.CollisionTimestamp,
			SkipExisting:         true,
			IncludeMyNotes:       true,
			IncludeEnhancedNotes: true,
			Frontmatter: frontmatter.Options{
				Filter:   metadata.FilterAll,
				Category: "[[Meetings]]",
			},
			Location: time.UTC,
		},
		DailyNote: DailyNoteConfig{
			Enabled:   true,
			Directory: "Daily",
			Heading:   "## Meetings",
		},
	}
}

func meetings() []models.Document {
	return []models.Document{
		testutil.Meeting("rev", "Review", reviewStart, "Ship it"),
		testutil.Meeting("std", "Standup", standupStart, "Hello"),
	}
}

func newService(t *testing.T, src Source, cfg Config, opts ...Option) (string, storage.Provider, *Service) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	opts = append([]Option{WithClock(func() time.Time { return evening })}, opts...)
	svc := New(src, store, cfg, testutil.Logger(), opts...)
	t.Cleanup(svc.Close)
	return dir, store, svc
}

func TestSyncWritesNotesAndDailyNote(t *testing.T) {
	events := &recordedEvents{}
	dir, _, svc := newService(t, staticSource{docs: meetings()}, testConfig(), WithEvents(events))

	rep, err := svc.Sync(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.SyncedCount() != 2 || rep.Count(reconcile.ActionCreated) != 2 {
		t.Fatalf("unexpected result: %+v", rep.Changes)
	}

	note := testutil.ReadFile(t, dir, "Meetings/2025-01-01_Standup.md")
	if !strings.Contains(note, "granola_id: std") || !strings.Contains(note, "Hello") {
		t.Errorf("standup note:\n%s", note)
	}

	daily := testutil.ReadFile(t, dir, "Daily/2025-01-01.md")
	want := "## Meetings\n" +
		"- 09:00 [[Meetings/2025-01-01_Standup|Standup]]\n" +
		"- 14:30 [[Meetings/2025-01-01_Review|Review]]\n"
	if daily != want {
		t.Errorf("daily note = %q, want %q", daily, want)
	}
	if rep.DailyNote == nil || rep.DailyNote.Path != "Daily/2025-01-01.md" {
		t.Errorf("daily note diff = %+v", rep.DailyNote)
	}

	st := svc.Status()
	if st.State != StateComplete || st.Synced != 2 || !st.LastSuccess.Equal(evening) {
		t.Errorf("status = %+v", st)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.statuses) != 2 || events.statuses[0] != StateSyncing || events.statuses[1] != StateComplete {
		t.Errorf("status events = %v", events.statuses)
	}
	if len(events.notes) != 2 || events.notes[0] != "created Meetings/2025-01-01_Review.md" {
		t.Errorf("note events = %v", events.notes)
	}
}

func TestSyncSecondRunIsUnchanged(t *testing.T) {
	events := &recordedEvents{}
	dir, _, svc := newService(t, staticSource{docs: meetings()}, testConfig(), WithEvents(events))

	if _, err := svc.Sync(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	before := testutil.ReadFile(t, dir, "Daily/2025-01-01.md")

	rep, err := svc.Sync(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Count(reconcile.ActionUnchanged) != 2 {
		t.Errorf("expected 2 unchanged, got %+v", rep.Changes)
	}
	if rep.DailyNote != nil {
		t.Errorf("daily note should not change, got %+v", rep.DailyNote)
	}
	if after := testutil.ReadFile(t, dir, "Daily/2025-01-01.md"); after != before {
		t.Errorf("daily note rewritten:\n%s", after)
	}
}

func TestSyncKeepsOtherDailyNoteSections(t *testing.T) {
	dir, _, svc := newService(t, staticSource{docs: meetings()[1:]}, testConfig())
	testutil.WriteFile(t, dir, "Daily/2025-01-01.md", "# Wednesday\n\n## Meetings\n- old\n\n## Todo\n- [ ] call\n")

	if _, err := svc.Sync(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	got := testutil.ReadFile(t, dir, "Daily/2025-01-01.md")
	want := "# Wednesday\n\n## Meetings\n- 09:00 [[Meetings/2025-01-01_Standup|Standup]]\n\n## Todo\n- [ ] call\n"
	if got != want {
		t.Errorf("daily note = %q, want %q", got, want)
	}
}

func TestSyncDailyNoteOnlyToday(t *testing.T) {
	old := testutil.Meeting("old", "Retro", standupStart.AddDate(0, 0, -3), "Notes")
	dir, store, svc := newService(t, staticSource{docs: []models.Document{old}}, testConfig())

	if _, err := svc.Sync(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists("Daily/2025-01-01.md"); ok {
		t.Errorf("daily note created for a past meeting:\n%s", testutil.ReadFile(t, dir, "Daily/2025-01-01.md"))
	}
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	_, store, svc := newService(t, staticSource{docs: meetings()}, testConfig())

	rep, err := svc.Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.DryRun || rep.Count(reconcile.ActionCreated) != 2 {
		t.Fatalf("unexpected result: %+v", rep.Changes)
	}
	if rep.DailyNote == nil || !strings.Contains(rep.DailyNote.After, "Standup") {
		t.Errorf("planned daily note = %+v", rep.DailyNote)
	}
	metas, err := store.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("dry run wrote %d files", len(metas))
	}
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	_, _, svc := newService(t, src, testConfig())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background(), false)
		done <- err
	}()
	<-src.entered

	if st := svc.Status(); st.State != StateSyncing {
		t.Errorf("status during run = %s", st.State)
	}
	if _, err := svc.Sync(context.Background(), false); !errors.Is(err, apperr.ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestSyncFetchErrorWithoutDocuments(t *testing.T) {
	_, _, svc := newService(t, staticSource{err: apperr.ErrNoCredentials}, testConfig())

	rep, err := svc.Sync(context.Background(), false)
	if !errors.Is(err, apperr.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
	if rep != nil {
		t.Errorf("expected no report, got %+v", rep)
	}
	st := svc.Status()
	if st.State != StateError || !strings.Contains(st.Error, "credentials") {
		t.Errorf("status = %+v", st)
	}
}

func TestSyncPartialListingKeepsCollectedDocuments(t *testing.T) {
	boom := errors.New("page 2: bad gateway")
	dir, _, svc := newService(t, staticSource{docs: meetings()[:1], err: boom}, testConfig())

	rep, err := svc.Sync(context.Background(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected listing error, got %v", err)
	}
	if rep == nil || rep.SyncedCount() != 1 {
		t.Fatalf("report = %+v", rep)
	}
	testutil.ReadFile(t, dir, "Meetings/2025-01-01_Review.md")
	if st := svc.Status(); st.State != StateError || st.Synced != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestSyncUsesIndexForIdentity(t *testing.T) {
	db := testutil.TestDB(t)
	cfg := testConfig()
	cfg.DailyNote.Enabled = false
	dir, store, svc := newService(t, staticSource{docs: meetings()[1:]}, cfg, WithIndex(db))

	if _, err := svc.Sync(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	p, err := db.FindByGranolaID("Meetings", "std")
	if err != nil || p != "Meetings/2025-01-01_Standup.md" {
		t.Fatalf("index lookup = %q, %v", p, err)
	}

	// Move the note; the refreshed index still finds it by id.
	content := testutil.ReadFile(t, dir, p)
	testutil.WriteFile(t, dir, "Meetings/archive/standup.md", content)
	if err := store.Delete(p); err != nil {
		t.Fatal(err)
	}

	rep, err := svc.Sync(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Changes[0].Action != reconcile.ActionUnchanged || rep.Changes[0].Path != "Meetings/archive/standup.md" {
		t.Errorf("change = %+v", rep.Changes[0])
	}
	if ok, _ := store.Exists(p); ok {
		t.Error("note recreated at its old path")
	}
}

func TestTrackerResetsToIdle(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	tr := NewTracker(20*time.Millisecond, func(s Status) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})
	defer tr.Stop()

	tr.Start(evening)
	tr.Complete(evening, 3)
	if st := tr.Status(); st.State != StateComplete || st.Synced != 3 {
		t.Fatalf("status = %+v", st)
	}

	deadline := time.Now().Add(2 * time.Second)
	for tr.Status().State != StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("tracker did not reset to idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if st := tr.Status(); st.Synced != 3 || !st.LastSuccess.Equal(evening) {
		t.Errorf("idle status lost run data: %+v", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[2] != StateIdle {
		t.Errorf("transitions = %v", seen)
	}
}

func TestTrackerNewRunCancelsReset(t *testing.T) {
	tr := NewTracker(20*time.Millisecond, nil)
	defer tr.Stop()

	tr.Fail(evening, 0, errors.New("boom"))
	tr.Start(evening)
	time.Sleep(60 * time.Millisecond)
	if st := tr.Status(); st.State != StateSyncing || st.Error != "" {
		t.Errorf("status = %+v", st)
	}
}

func TestSchedulerRunsImmediately(t *testing.T) {
	_, _, svc := newService(t, staticSource{docs: meetings()}, testConfig())
	sc := NewScheduler(svc, 0, true, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for svc.Status().State != StateComplete {
		if time.Now().After(deadline) {
			t.Fatal("scheduled pass did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
