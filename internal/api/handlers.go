package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/meetings"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/syncer"
)

// Syncer runs sync passes and reports their status.
type Syncer interface {
	Sync(ctx context.Context, dryRun bool) (*syncer.Report, error)
	Status() syncer.Status
}

// Handler holds API route handlers.
type Handler struct {
	sync     Syncer
	meetings *meetings.Service
}

// NewHandler creates a new Handler.
func NewHandler(sync Syncer, m *meetings.Service) *Handler {
	return &Handler{sync: sync, meetings: m}
}

// Status handles GET /api/status.
//
//	@Summary		Current sync status
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}

// Sync handles POST /api/sync. The pass runs to completion even when the
// client disconnects.
//
//	@Summary		Run a sync pass now
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	rep, err := h.sync.Sync(context.WithoutCancel(r.Context()), false)
	if errors.Is(err, apperr.ErrSyncInProgress) {
		writeJSON(w, http.StatusConflict, errorBody("sync already in progress"))
		return
	}

	resp := SyncResponse{Status: h.sync.Status()}
	if rep != nil {
		resp.Created = rep.Count(reconcile.ActionCreated)
		resp.Updated = rep.Count(reconcile.ActionUpdated) + rep.Count(reconcile.ActionPartial)
		resp.Unchanged = rep.Count(reconcile.ActionUnchanged)
		resp.Skipped = rep.Count(reconcile.ActionSkipped)
		resp.Failed = rep.Count(reconcile.ActionFailed)
		if rep.DailyNote != nil {
			resp.DailyNote = rep.DailyNote.Path
		}
	}
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMeetings handles GET /api/meetings.
//
//	@Summary		List synced meetings, newest first
//	@Tags			meetings
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			person	query		string	false	"Only meetings with this attendee"
//	@Success		200		{object}	MeetingListResponse
//	@Security		BearerAuth
//	@Router			/meetings [get]
func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.meetings.List(r.Context(), limit, offset, q.Get("person"))
	if err != nil {
		internalError(w, "list meetings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, MeetingListResponse{Meetings: items, Total: total})
}

// GetMeeting handles GET /api/meetings/{id}.
//
//	@Summary		Get a meeting note by granola_id
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		string	true	"granola_id"
//	@Success		200	{object}	MeetingDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/{id} [get]
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.meetings.Get(r.Context(), id)
	if err != nil {
		if meetings.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			internalError(w, "get meeting failed", err, slog.String("granola_id", id))
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across meeting notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.meetings.Search(r.Context(), q, limit)
	if err != nil {
		internalError(w, "search failed", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
