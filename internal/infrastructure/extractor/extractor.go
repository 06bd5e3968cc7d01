// Package extractor routes stored textbooks to a format-specific extractor.
package extractor

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

// Router picks an extractor by file extension of the stored object.
type Router struct {
	byExt map[string]ports.Extractor
}

func NewRouter() *Router {
	return &Router{byExt: make(map[string]ports.Extractor)}
}

// Register binds an extension like ".pdf" to an extractor. Later
// registrations replace earlier ones.
func (r *Router) Register(ext string, e ports.Extractor) *Router {
	r.byExt[strings.ToLower(ext)] = e
	return r
}

func (r *Router) ExtractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error) {
	ext := strings.ToLower(path.Ext(tb.StoragePath))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "route extractor",
			fmt.Errorf("unsupported file type %q", ext))
	}
	return e.ExtractPages(ctx, tb)
}
