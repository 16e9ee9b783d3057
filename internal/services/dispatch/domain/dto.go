package domain

// CreateShotInput is the POST /shots payload
type CreateShotInput struct {
	Title string   `json:"title" validate:"required,max=200" example:"rooftop at golden hour"`
	Tags  []string `json:"tags,omitempty" validate:"omitempty,max=10"`
	Color string   `json:"color,omitempty" validate:"omitempty,hexcolor" example:"#b4532a"`
}

// UpdateShotInput is the PATCH /shots/{id} payload; omitted fields stay as
// they are
type UpdateShotInput struct {
	Title *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Tags  *[]string `json:"tags,omitempty" validate:"omitempty,max=10"`
	Color *string   `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ReactionInput is the POST /shots/{id}/reactions payload
type ReactionInput struct {
	Kind string `json:"kind" validate:"required,oneof=like save" example:"like"`
}

// CommentInput is the POST /shots/{id}/comments payload
type CommentInput struct {
	Body string `json:"body" validate:"required,min=1,max=1000" example:"unreal light"`
}

// ViewsOutput is the POST /shots/{id}/views response payload
type ViewsOutput struct {
	Views int64 `json:"views" example:"209"`
}
