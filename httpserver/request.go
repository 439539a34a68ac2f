package httpserver

// DetailRequest is bound from the /details/:id path and query string.
type DetailRequest struct {
	ID       int    `json:"id" param:"id" validate:"required,gt=0"`
	Type     string `json:"type" query:"type"`
	Language string `json:"language" query:"language"`
}
