// Package http provides http transport for the shots read surface
package http

import (
	stdhttp "net/http"
	"strconv"

	"lightbox/internal/modkit/httpkit"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/services/shots/domain"

	"github.com/oklog/ulid/v2"
)

// Register mounts shots read endpoints on the given router
func Register(r httpkit.Router, s domain.QueryPort) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.QueryInput](r, "/query", h.query)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.Get(r, "/{id}/comments", h.comments)
}

type handlers struct{ svc domain.QueryPort }

// ShotID parses and validates a ULID path parameter
func ShotID(r *stdhttp.Request) (string, error) {
	raw := httpkit.Param(r, "id")
	id, err := ulid.Parse(raw)
	if err != nil {
		return "", perr.InvalidArgf("invalid shot id %q", raw)
	}
	return id.String(), nil
}

// @Summary Query the feed
// @Description Filtered, sorted, paginated shot listing; cache first
// @Tags Shots
// @Accept json
// @Produce json
// @Param payload body domain.QueryInput true "Feed query"
// @Success 200 {object} domain.FeedPage "ok"
// @Router /shots/query [post]
func (h *handlers) query(r *stdhttp.Request, in domain.QueryInput) (any, error) {
	return h.svc.List(r.Context(), in)
}

// @Summary Get one shot
// @Tags Shots
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Success 200 {object} domain.Shot "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /shots/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), id)
}

// @Summary List comments on a shot
// @Tags Shots
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} domain.CommentPage "ok"
// @Router /shots/{id}/comments [get]
func (h *handlers) comments(r *stdhttp.Request) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	in, err := commentsInput(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Comments(r.Context(), id, in)
}

func commentsInput(r *stdhttp.Request) (domain.CommentsInput, error) {
	var in domain.CommentsInput
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return in, perr.InvalidArgf("page must be a positive integer")
		}
		in.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return in, perr.InvalidArgf("page_size must be a positive integer")
		}
		in.PageSize = n
	}
	return in, nil
}
