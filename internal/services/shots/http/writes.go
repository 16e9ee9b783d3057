package http

import (
	stdhttp "net/http"

	"lightbox/internal/modkit/httpkit"
	dispatch "lightbox/internal/services/dispatch/domain"
)

// RegisterWrites mounts the authenticated mutation endpoints. The acting
// user is always the bearer identity; client-supplied actor ids are ignored
func RegisterWrites(r httpkit.Router, d dispatch.DispatchPort) {
	h := &writeHandlers{d: d}
	httpkit.PostJSON[dispatch.CreateShotInput](r, "/", h.create)
	httpkit.PatchJSON[dispatch.UpdateShotInput](r, "/{id}", h.update)
	httpkit.Delete(r, "/{id}", h.remove)
	httpkit.PostJSON[dispatch.ReactionInput](r, "/{id}/reactions", h.react)
	httpkit.PostJSON[dispatch.CommentInput](r, "/{id}/comments", h.comment)
	httpkit.Post(r, "/{id}/views", h.view)
}

type writeHandlers struct{ d dispatch.DispatchPort }

// @Summary Publish a shot
// @Tags Shots
// @Accept json
// @Produce json
// @Param payload body domain.CreateShotInput true "New shot"
// @Success 201 {object} domain.Shot "created"
// @Failure 422 {object} httpkit.Envelope "validation"
// @Router /shots [post]
func (h *writeHandlers) create(r *stdhttp.Request, in dispatch.CreateShotInput) (any, error) {
	res, err := h.d.Apply(r.Context(), dispatch.CreateShot{
		AuthorID: httpkit.MustUser(r),
		Title:    in.Title,
		Tags:     in.Tags,
		Color:    in.Color,
	})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(res.Shot), nil
}

// @Summary Edit a shot
// @Description Only title, tags, and dominant color move; omitted fields stay
// @Tags Shots
// @Accept json
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Param payload body domain.UpdateShotInput true "Patch"
// @Success 200 {object} domain.Shot "ok"
// @Failure 403 {object} httpkit.Envelope "not the author"
// @Router /shots/{id} [patch]
func (h *writeHandlers) update(r *stdhttp.Request, in dispatch.UpdateShotInput) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	res, err := h.d.Apply(r.Context(), dispatch.UpdateShotMeta{
		ShotID:  id,
		ActorID: httpkit.MustUser(r),
		Title:   in.Title,
		Tags:    in.Tags,
		Color:   in.Color,
	})
	if err != nil {
		return nil, err
	}
	return res.Shot, nil
}

// @Summary Delete a shot
// @Tags Shots
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Success 200 {object} domain.Shot "deleted"
// @Failure 403 {object} httpkit.Envelope "not the author"
// @Router /shots/{id} [delete]
func (h *writeHandlers) remove(r *stdhttp.Request) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	res, err := h.d.Apply(r.Context(), dispatch.DeleteShot{
		ShotID:  id,
		ActorID: httpkit.MustUser(r),
	})
	if err != nil {
		return nil, err
	}
	return res.Shot, nil
}

// @Summary Toggle a reaction
// @Description Likes and saves toggle; repeating a toggle undoes it
// @Tags Shots
// @Accept json
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Param payload body domain.ReactionInput true "Reaction"
// @Success 200 {object} domain.ToggleState "ok"
// @Router /shots/{id}/reactions [post]
func (h *writeHandlers) react(r *stdhttp.Request, in dispatch.ReactionInput) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	res, err := h.d.Apply(r.Context(), dispatch.ToggleReaction{
		Kind:    dispatch.ReactionKind(in.Kind),
		ShotID:  id,
		ActorID: httpkit.MustUser(r),
	})
	if err != nil {
		return nil, err
	}
	return res.Toggle, nil
}

// @Summary Comment on a shot
// @Tags Shots
// @Accept json
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Param payload body domain.CommentInput true "Comment"
// @Success 201 {object} domain.Comment "created"
// @Router /shots/{id}/comments [post]
func (h *writeHandlers) comment(r *stdhttp.Request, in dispatch.CommentInput) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	res, err := h.d.Apply(r.Context(), dispatch.CreateComment{
		ShotID:   id,
		AuthorID: httpkit.MustUser(r),
		Body:     in.Body,
	})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(res.Comment), nil
}

// @Summary Record a view
// @Tags Shots
// @Produce json
// @Param id path string true "Shot id (ULID)"
// @Success 200 {object} domain.ViewsOutput "ok"
// @Router /shots/{id}/views [post]
func (h *writeHandlers) view(r *stdhttp.Request) (any, error) {
	id, err := ShotID(r)
	if err != nil {
		return nil, err
	}
	res, err := h.d.Apply(r.Context(), dispatch.RecordView{
		ShotID:  id,
		ActorID: httpkit.MustUser(r),
	})
	if err != nil {
		return nil, err
	}
	return dispatch.ViewsOutput{Views: res.Views}, nil
}
