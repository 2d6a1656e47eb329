// Package catalog lists the programmes an applicant can choose from.
package catalog

import (
	"context"

	"admissions-wizard/internal/models"
)

// Source lists programmes, optionally for one institution.
type Source interface {
	ListPrograms(ctx context.Context, institution string) ([]models.Program, error)
}

// Searcher runs free-text programme queries.
type Searcher interface {
	SearchPrograms(ctx context.Context, institution, query string) ([]models.Program, error)
}

// Catalog answers listing and search requests. Search falls back to a
// listing when no searcher is configured or the query is empty.
type Catalog struct {
	source   Source
	searcher Searcher
}

func New(source Source, searcher Searcher) *Catalog {
	return &Catalog{source: source, searcher: searcher}
}

func (c *Catalog) Programs(ctx context.Context, institution, query string) ([]models.Program, error) {
	if query != "" && c.searcher != nil {
		return c.searcher.SearchPrograms(ctx, institution, query)
	}
	return c.source.ListPrograms(ctx, institution)
}
