package adapters

import (
	"context"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

// stubAdapter satisfies the Adapter contract for variants spec §4.9 scopes
// out of the core's direct support (file_document — office/PDF formats;
// file_markup — structured-markup formats beyond a rendered page;
// domain_specific — a project-defined source with no generic fetch
// semantics). The factory still returns a real Adapter for these so
// callers never need a type switch of their own; Fetch reports
// ErrKindUnsupported rather than panicking or returning a zero Adapter.
type stubAdapter struct {
	ds config.DataSource
}

func newStubAdapter(ds config.DataSource) *stubAdapter {
	return &stubAdapter{ds: ds}
}

func (a *stubAdapter) ValidateConfig() bool {
	return a.ds.Path != "" || a.ds.URL != ""
}

func (a *stubAdapter) CacheKey(params map[string]string) string {
	return cacheKeyFor(a.ds.Name, params)
}

func (a *stubAdapter) Fetch(ctx context.Context, params map[string]string) (value.Value, error) {
	return value.Value{}, &AdapterError{
		Kind:    ErrKindUnsupported,
		Source:  a.ds.Name,
		Message: "source variant " + string(a.ds.Variant) + " has no generic fetch implementation",
	}
}
