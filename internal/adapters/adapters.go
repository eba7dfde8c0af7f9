// Package adapters implements the Data-Source Adapter contract (spec
// §4.9): a small structural interface (`Fetch`, `ValidateConfig`,
// `CacheKey`) satisfied by composition per source-variant, with a factory
// that dispatches on the Data-Source Descriptor's variant tag. The
// generated extractor — not the Constraint Enforcer or the Orchestrator
// core — is the caller of Fetch (spec §4.9's explicit separation of
// concerns: the core never reaches into a data source itself).
//
// Grounded on the teacher's internal/browser (rod launcher/page lifecycle,
// for the web_rendered variant) and on its outbound-HTTP-via-stdlib
// convention elsewhere in the codebase (no HTTP client library is ever
// reached for; net/http is the teacher's own idiomatic choice).
package adapters

import (
	"context"
	"fmt"
	"sort"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

// ErrorKind classifies an AdapterError the way internal/llm.Error and
// internal/agent.AgentError classify theirs (spec §10.2's Kind-enum error
// convention, applied here).
type ErrorKind string

const (
	ErrKindFetch       ErrorKind = "FETCH"
	ErrKindConfig      ErrorKind = "CONFIG"
	ErrKindUnsupported ErrorKind = "UNSUPPORTED"
)

// AdapterError is the sum-typed error every Adapter method returns on
// failure (spec §4.9's `Value | AdapterError` result shape, rendered as
// Go's (value.Value, error) idiom).
type AdapterError struct {
	Kind    ErrorKind
	Source  string
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("adapters: %s: %s: %s: %v", e.Source, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("adapters: %s: %s: %s", e.Source, e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Cause }

// Adapter is the structural contract spec §4.9 names: fetch a value given
// per-call parameters, report whether the descriptor that built this
// adapter is itself usable, and derive a deterministic cache key for a
// given parameter set. Nothing in this repository stores adapter results
// under that key; it is returned to the caller only.
type Adapter interface {
	Fetch(ctx context.Context, params map[string]string) (value.Value, error)
	ValidateConfig() bool
	CacheKey(params map[string]string) string
}

// New dispatches on the Data-Source Descriptor's variant tag to build the
// concrete Adapter (spec §4.9: "the factory dispatches on the
// source-variant tag").
func New(ds config.DataSource) (Adapter, error) {
	switch ds.Variant {
	case config.SourceAPI:
		return newAPIAdapter(ds), nil
	case config.SourceURL:
		return newURLAdapter(ds), nil
	case config.SourceFileTabular:
		return newTabularAdapter(ds), nil
	case config.SourceWebRendered:
		return newWebRenderedAdapter(ds), nil
	case config.SourceFileDocument, config.SourceFileMarkup, config.SourceDomainSpecific:
		return newStubAdapter(ds), nil
	default:
		return nil, &AdapterError{Kind: ErrKindConfig, Source: ds.Name, Message: fmt.Sprintf("unknown source variant %q", ds.Variant)}
	}
}

// cacheKeyFor builds the deterministic cache key shared by every
// concrete adapter: source name, then params sorted by key into a
// stable "k=v" sequence. Parameters arrive as a map (order is not
// meaningful to the caller), so the key is built from the Data-Source
// Descriptor's own identity plus a canonical rendering of params.
func cacheKeyFor(sourceName string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := sourceName
	for _, k := range keys {
		key += fmt.Sprintf("|%s=%s", k, params[k])
	}
	return key
}
