// Package http provides http transport for the social surface
package http

import (
	stdhttp "net/http"

	"lightbox/internal/modkit/httpkit"
	perr "lightbox/internal/platform/errors"
	dispatch "lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/social/domain"
)

// Register mounts the public profile endpoints on the given router
func Register(r httpkit.Router, s domain.ProfilePort) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/{id}", h.profile)
}

// RegisterWrites mounts the follow toggle behind auth. The acting user is
// always the bearer identity
func RegisterWrites(r httpkit.Router, d dispatch.DispatchPort) {
	w := &writes{dispatch: d}
	httpkit.Post(r, "/{id}/follow", w.follow)
}

type handlers struct{ svc domain.ProfilePort }

type writes struct{ dispatch dispatch.DispatchPort }

// UserID returns the user id path parameter. User ids are opaque bearer
// subjects, not ULIDs, so only presence is validated
func UserID(r *stdhttp.Request) (string, error) {
	id := httpkit.Param(r, "id")
	if id == "" {
		return "", perr.InvalidArgf("user id required")
	}
	return id, nil
}

// @Summary Get a user profile
// @Description Follower, following, and shot counts for a user
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} domain.Profile "ok"
// @Router /users/{id} [get]
func (h *handlers) profile(r *stdhttp.Request) (any, error) {
	id, err := UserID(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Profile(r.Context(), id)
}

// @Summary Toggle following a user
// @Description Follows when not following, unfollows when already following
// @Tags Users
// @Produce json
// @Param id path string true "User id to follow or unfollow"
// @Success 200 {object} dispatch.ToggleState "ok"
// @Failure 422 {object} httpkit.Envelope "self-follow"
// @Router /users/{id}/follow [post]
func (w *writes) follow(r *stdhttp.Request) (any, error) {
	id, err := UserID(r)
	if err != nil {
		return nil, err
	}
	res, err := w.dispatch.Apply(r.Context(), dispatch.ToggleFollow{
		FollowerID: httpkit.MustUser(r),
		FolloweeID: id,
	})
	if err != nil {
		return nil, err
	}
	return res.Toggle, nil
}
