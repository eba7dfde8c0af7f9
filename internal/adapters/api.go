package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

// apiAdapter fetches a JSON response from an HTTP(S) API endpoint. No
// client library is used — net/http is the teacher's own idiomatic choice
// for outbound HTTP, and a JSON API needs nothing more.
type apiAdapter struct {
	ds     config.DataSource
	client *http.Client
}

func newAPIAdapter(ds config.DataSource) *apiAdapter {
	return &apiAdapter{ds: ds, client: &http.Client{}}
}

func (a *apiAdapter) ValidateConfig() bool {
	return a.ds.Endpoint != ""
}

func (a *apiAdapter) CacheKey(params map[string]string) string {
	return cacheKeyFor(a.ds.Name, params)
}

func (a *apiAdapter) Fetch(ctx context.Context, params map[string]string) (value.Value, error) {
	if !a.ValidateConfig() {
		return value.Value{}, &AdapterError{Kind: ErrKindConfig, Source: a.ds.Name, Message: "missing endpoint"}
	}

	reqURL, err := buildRequestURL(a.ds, params)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindConfig, Source: a.ds.Name, Message: "build request URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
	if resp.StatusCode >= 400 {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	v, err := value.FromJSON(body)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "parse JSON response", Cause: err}
	}
	return v, nil
}

func buildRequestURL(ds config.DataSource, params map[string]string) (string, error) {
	u, err := url.Parse(ds.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range ds.Parameters {
		q.Set(k, v)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	if ds.Auth != nil && ds.Auth.Type == "api_key" && ds.Auth.QueryParam != "" {
		q.Set(ds.Auth.QueryParam, ds.Auth.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func applyHeaders(req *http.Request, ds config.DataSource) {
	for k, v := range ds.Headers {
		req.Header.Set(k, v)
	}
}

func applyAuth(req *http.Request, ds config.DataSource) {
	if ds.Auth == nil {
		return
	}
	switch ds.Auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+ds.Auth.Token)
	case "basic":
		req.SetBasicAuth(ds.Auth.Username, ds.Auth.Password)
	case "api_key":
		if ds.Auth.HeaderName != "" {
			req.Header.Set(ds.Auth.HeaderName, ds.Auth.APIKey)
		}
	}
}
