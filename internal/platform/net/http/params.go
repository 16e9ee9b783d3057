package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Param returns the named chi route parameter, empty when absent
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
