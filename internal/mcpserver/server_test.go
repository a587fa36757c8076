package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/index"
	"github.com/starford/granola-sync/internal/meetings"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/storage"
	"github.com/starford/granola-sync/internal/syncer"
	"github.com/starford/granola-sync/internal/testutil"
)

type staticSource []models.Document

func (s staticSource) ListDocuments(context.Context) ([]models.Document, error) {
	return s, nil
}

type busySyncer struct{}

func (busySyncer) Sync(context.Context, bool) (*syncer.Report, error) {
	return nil, apperr.ErrSyncInProgress
}

func (busySyncer) Status() syncer.Status { return syncer.Status{State: syncer.StateSyncing} }

type testEnv struct {
	srv   *Server
	dir   string
	store storage.Provider
	db    *index.DB
}

func newTestEnv(t *testing.T, sync Syncer) testEnv {
	t.Helper()
	dir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	if sync == nil {
		docs := staticSource{
			testutil.Meeting("m1", "Kickoff", time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC), "Budget agreed"),
		}
		svc := syncer.New(docs, store, syncer.Config{
			Reconcile: reconcile.Options{Directory: "Meetings", IncludeMyNotes: true, Location: time.UTC},
		}, testutil.Logger(), syncer.WithIndex(db))
		t.Cleanup(svc.Close)
		sync = svc
	}
	srv := New(sync, meetings.NewService(store, db, "Meetings"), "test")
	return testEnv{srv: srv, dir: dir, store: store, db: db}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so the handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "sync_now":
		result, err = srv.syncNow(ctx, req)
	case "sync_status":
		result, err = srv.syncStatus(ctx, req)
	case "search_meetings":
		result, err = srv.searchMeetings(ctx, req)
	case "read_meeting":
		result, err = srv.readMeeting(ctx, req)
	case "meetings_with":
		result, err = srv.meetingsWith(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSyncNowThenReadMeeting(t *testing.T) {
	env := newTestEnv(t, nil)

	r := callTool(t, env.srv, "sync_now", map[string]any{})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, "created: 1") || !strings.Contains(text, "created Meetings/2025-02-03_Kickoff.md") {
		t.Fatalf("sync_now = %q", text)
	}

	r = callTool(t, env.srv, "sync_status", map[string]any{})
	if !strings.Contains(resultText(r), `"state": "complete"`) {
		t.Errorf("sync_status = %q", resultText(r))
	}

	r = callTool(t, env.srv, "read_meeting", map[string]any{"granola_id": "m1"})
	if r.IsError || !strings.Contains(resultText(r), "Budget agreed") {
		t.Errorf("read_meeting = %q", resultText(r))
	}
}

func TestSyncNowDryRun(t *testing.T) {
	env := newTestEnv(t, nil)

	r := callTool(t, env.srv, "sync_now", map[string]any{"dry_run": true})
	if !strings.HasPrefix(resultText(r), "dry run") {
		t.Errorf("dry run output = %q", resultText(r))
	}
	if ok, _ := env.store.Exists("Meetings/2025-02-03_Kickoff.md"); ok {
		t.Error("dry run wrote the note")
	}
}

func TestSyncNowBusy(t *testing.T) {
	env := newTestEnv(t, busySyncer{})
	r := callTool(t, env.srv, "sync_now", map[string]any{})
	if !r.IsError || !strings.Contains(resultText(r), "already running") {
		t.Errorf("busy sync_now = %q", resultText(r))
	}
}

func TestReadMeetingMissing(t *testing.T) {
	env := newTestEnv(t, nil)
	r := callTool(t, env.srv, "read_meeting", map[string]any{"granola_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing meeting")
	}
	r = callTool(t, env.srv, "read_meeting", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing argument")
	}
}

func TestSearchAndMeetingsWith(t *testing.T) {
	env := newTestEnv(t, nil)
	note := "---\ngranola_id: s1\ndate: 2025-01-05 10:00\ntitle: Pricing\npeople:\n  - \"[[Jane Doe]]\"\n---\n\n# Pricing\n\nDiscount tiers.\n"
	testutil.WriteFile(t, env.dir, "Meetings/pricing.md", note)
	if err := env.db.IndexFile("Meetings/pricing.md", []byte(note)); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, env.srv, "search_meetings", map[string]any{"query": "discount"})
	if r.IsError || !strings.Contains(resultText(r), `"granola_id": "s1"`) {
		t.Errorf("search_meetings = %q", resultText(r))
	}

	r = callTool(t, env.srv, "search_meetings", map[string]any{"query": "zebra"})
	if resultText(r) != "no meetings found" {
		t.Errorf("empty search = %q", resultText(r))
	}

	r = callTool(t, env.srv, "meetings_with", map[string]any{"person": "jane doe"})
	if want := "2025-01-05 10:00\ts1\tPricing\tMeetings/pricing.md\n"; resultText(r) != want {
		t.Errorf("meetings_with = %q, want %q", resultText(r), want)
	}

	r = callTool(t, env.srv, "meetings_with", map[string]any{"person": "Nobody"})
	if !strings.HasPrefix(resultText(r), "no meetings with") {
		t.Errorf("meetings_with unknown = %q", resultText(r))
	}
}
