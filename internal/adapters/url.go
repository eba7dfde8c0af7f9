package adapters

import (
	"context"
	"io"
	"net/http"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

// urlAdapter fetches a raw document from a plain URL (no JSON contract
// assumed, unlike the api variant) and hands back its body as a string
// value for downstream parsing by the Plan/Coder personas.
type urlAdapter struct {
	ds     config.DataSource
	client *http.Client
}

func newURLAdapter(ds config.DataSource) *urlAdapter {
	return &urlAdapter{ds: ds, client: &http.Client{}}
}

func (a *urlAdapter) ValidateConfig() bool {
	return a.ds.URL != ""
}

func (a *urlAdapter) CacheKey(params map[string]string) string {
	return cacheKeyFor(a.ds.Name, params)
}

func (a *urlAdapter) Fetch(ctx context.Context, params map[string]string) (value.Value, error) {
	if !a.ValidateConfig() {
		return value.Value{}, &AdapterError{Kind: ErrKindConfig, Source: a.ds.Name, Message: "missing url"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.ds.URL, nil)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "build request", Cause: err}
	}
	applyHeaders(req, a.ds)
	applyAuth(req, a.ds)

	resp, err := a.client.Do(req)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "read response body", Cause: err}
	}
	return value.String(string(body)), nil
}
