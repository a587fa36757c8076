// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes meeting sync and lookup tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/meetings"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/syncer"
)

const formatURI = "granola-sync://meeting-format"

// Syncer runs sync passes and reports their status.
type Syncer interface {
	Sync(ctx context.Context, dryRun bool) (*syncer.Report, error)
	Status() syncer.Status
}

// Server wraps the MCP server with the meeting tools.
type Server struct {
	mcp      *server.MCPServer
	sync     Syncer
	meetings *meetings.Service
}

// New creates a new MCP server with all tools registered.
func New(sync Syncer, m *meetings.Service, version string) *Server {
	s := &Server{sync: sync, meetings: m}

	s.mcp = server.NewMCPServer(
		"granola-sync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Fetch meeting documents from Granola and write them into the vault now. "+
			"Fails when a sync is already running."),
		mcp.WithBoolean("dry_run", mcp.Description("Report what would change without writing")),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Current sync state (idle, syncing, complete, error) with the last synced count."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("search_meetings",
		mcp.WithDescription("Full-text search through meeting titles, notes and attendees."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchMeetings)

	s.mcp.AddTool(mcp.NewTool("read_meeting",
		mcp.WithDescription("Read the full Markdown note of a meeting by its Granola document id. "+
			"The note layout is described by the "+formatURI+" resource."),
		mcp.WithString("granola_id", mcp.Required(), mcp.Description("Granola document id (granola_id header field)")),
	), s.readMeeting)

	s.mcp.AddTool(mcp.NewTool("meetings_with",
		mcp.WithDescription("List meetings attended by a person, newest first."),
		mcp.WithString("person", mcp.Required(), mcp.Description("Attendee name as it appears in the people list")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of meetings (default 20)")),
	), s.meetingsWith)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Meeting Note Format",
			mcp.WithResourceDescription("Layout of the meeting notes written by the sync."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) syncNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dryRun := req.GetBool("dry_run", false)
	rep, err := s.sync.Sync(ctx, dryRun)
	if errors.Is(err, apperr.ErrSyncInProgress) {
		return mcp.NewToolResultError("a sync is already running; check sync_status"), nil
	}
	if rep == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if dryRun {
		b.WriteString("dry run, nothing written\n")
	}
	fmt.Fprintf(&b, "created: %d\nupdated: %d\nunchanged: %d\nskipped: %d\nfailed: %d\n",
		rep.Count(reconcile.ActionCreated),
		rep.Count(reconcile.ActionUpdated)+rep.Count(reconcile.ActionPartial),
		rep.Count(reconcile.ActionUnchanged),
		rep.Count(reconcile.ActionSkipped),
		rep.Count(reconcile.ActionFailed))
	for _, ch := range rep.Changes {
		if ch.Action.Wrote() {
			fmt.Fprintf(&b, "%s %s\n", ch.Action, ch.Path)
		}
	}
	if err != nil {
		fmt.Fprintf(&b, "error: %s\n", err)
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) syncStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.sync.Status(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.meetings.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no meetings found"), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("granola_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.meetings.Get(ctx, id)
	if err != nil {
		if meetings.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) meetingsWith(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	person, err := req.RequireString("person")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, _, err := s.meetings.List(ctx, req.GetInt("limit", 20), 0, person)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no meetings with %s", person)), nil
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", it.Date, it.GranolaID, it.Title, it.Path)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     MeetingFormat,
		},
	}, nil
}
