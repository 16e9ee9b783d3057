package domain

// QueryInput is the raw feed query as it arrives over the wire.
// The feedquery compiler is the authority on bounds and canonical form, so
// no validate tags here: every rejection comes from one place with one
// message shape
type QueryInput struct {
	Text     string   `json:"text,omitempty"      example:"golden hour"`
	Tags     []string `json:"tags,omitempty"      example:"neon,city"`
	Color    string   `json:"color,omitempty"     example:"#b4532a"`
	Author   string   `json:"author,omitempty"`
	Since    string   `json:"since,omitempty"     example:"2026-01-01T00:00:00Z"`
	Until    string   `json:"until,omitempty"`
	Sort     string   `json:"sort,omitempty"      example:"popular"`
	Page     int      `json:"page,omitempty"      example:"1"`
	PageSize int      `json:"page_size,omitempty" example:"20"`
}

// CommentsInput selects a page of comments for a shot
type CommentsInput struct {
	Page     int
	PageSize int
}
