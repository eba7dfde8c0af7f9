// Package llm implements the provider-agnostic LLM Gateway (spec §4.5): a
// single Complete entry point in front of per-provider clients, with
// retry/backoff, JSON-mode enforcement, token accounting, and structured
// logging shared across providers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/exampleforge/exampleforge/internal/llm/cache"
)

// Request is one completion request sent through the Gateway.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// SchemaName/Schema request provider-native structured output where
	// supported (OpenAI). Providers without native JSON-schema enforcement
	// fall back to balanced-brace extraction from free text.
	SchemaName string
	Schema     any
	MaxTokens  int
	// Temperature is a pointer so "unset" (use the model default) is
	// distinguishable from an explicit 0 (deterministic).
	Temperature *float64
}

// Response is what the Gateway hands back after a successful completion.
type Response struct {
	Text             string
	RequestID        string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	Cached           bool
}

// Provider is the interface every concrete LLM client implements. The
// Gateway never talks to an HTTP/SDK client directly.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls Gateway-level cross-cutting behavior.
type Config struct {
	MaxRetries      int
	MaxConcurrency  int64
	BaseBackoff     time.Duration
	Cache           *cache.Store // nil disables caching
}

// DefaultConfig mirrors the teacher's perception-client defaults: three
// retries, exponential backoff starting at one second.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		MaxConcurrency: 4,
		BaseBackoff:    time.Second,
	}
}

// Gateway is the single entry point the Dual-Mode Agent calls through.
type Gateway struct {
	provider Provider
	cfg      Config
	sem      *semaphore.Weighted
	log      *zap.Logger
}

func NewGateway(provider Provider, cfg Config, log *zap.Logger) *Gateway {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	return &Gateway{
		provider: provider,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrency),
		log:      log,
	}
}

// Complete runs one request through caching, concurrency limiting, and
// retry-with-backoff, in that order (spec §4.5, §5).
func (g *Gateway) Complete(ctx context.Context, req Request) (Response, error) {
	key := g.cacheKey(req)
	if g.cfg.Cache != nil {
		if cached, ok, err := g.cfg.Cache.Get(ctx, key); err == nil && ok {
			g.log.Debug("gateway cache hit", zap.String("provider", g.provider.Name()))
			return Response{Text: cached, Cached: true}, nil
		}
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("llm: acquire concurrency slot: %w", err)
	}
	defer g.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1)))*g.cfg.BaseBackoff + jitter(g.cfg.BaseBackoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
		}

		start := time.Now()
		resp, err := g.provider.Complete(ctx, req)
		if err == nil {
			g.log.Info("gateway completion",
				zap.String("request_id", resp.RequestID),
				zap.String("model", resp.Model),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int("input_tokens", resp.PromptTokens),
				zap.Int("output_tokens", resp.CompletionTokens),
				zap.String("finish_reason", resp.FinishReason),
				zap.String("provider", g.provider.Name()),
				zap.Int("attempt", attempt),
			)
			if g.cfg.Cache != nil {
				_ = g.cfg.Cache.Put(ctx, key, resp.Text)
			}
			return resp, nil
		}

		lastErr = err
		var ge *Error
		if ok := asGatewayError(err, &ge); ok && !ge.Retryable {
			g.log.Error("gateway completion failed, not retryable",
				zap.String("provider", g.provider.Name()), zap.Error(err))
			return Response{}, err
		}
		g.log.Warn("gateway completion failed, retrying",
			zap.String("provider", g.provider.Name()), zap.Int("attempt", attempt), zap.Error(err))
	}

	return Response{}, fmt.Errorf("llm: max retries exceeded: %w", lastErr)
}

func (g *Gateway) cacheKey(req Request) string {
	b, _ := json.Marshal(req)
	return g.provider.Name() + ":" + string(b)
}

// jitter returns a random duration in [0, base], the additive term in
// spec §4.5's backoff formula (base · 2^k + jitter). A zero base (as in
// tests that disable backoff entirely) yields zero jitter.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base) + 1))
}

// ExtractJSON enforces JSON-mode for providers with no native schema
// support: it scans for every balanced `{...}` or `[...]` span in the text
// and returns the longest one, per spec §4.5's "provider-native or
// balanced-brace extraction fallback" — a short JSON-looking aside before
// the real payload, or a top-level array response, must not win over the
// actual payload.
func ExtractJSON(text string) (string, error) {
	type span struct {
		open, close rune
	}
	pairs := []span{{'{', '}'}, {'[', ']'}}

	var best string
	for _, p := range pairs {
		start := -1
		depth := 0
		for i, r := range text {
			switch r {
			case p.open:
				if depth == 0 {
					start = i
				}
				depth++
			case p.close:
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 && start >= 0 {
					if cand := text[start : i+1]; len(cand) > len(best) {
						best = cand
					}
					start = -1
				}
			}
		}
	}

	if best == "" {
		return "", fmt.Errorf("llm: no balanced JSON object or array found in response")
	}
	return best, nil
}
