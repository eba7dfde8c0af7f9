package llm

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name      string
	failTimes int32
	calls     int32
	retryable bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failTimes {
		return Response{}, &Error{Kind: KindTransport, Provider: f.name, Message: "transient", Retryable: f.retryable}
	}
	return Response{
		Text: "ok", RequestID: "req-1", Model: "fake-model", FinishReason: "stop",
		PromptTokens: 1, CompletionTokens: 1,
	}, nil
}

func TestGateway_RetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{name: "fake", failTimes: 2, retryable: true}
	gw := NewGateway(p, Config{MaxRetries: 3}, zap.NewNop())

	resp, err := gw.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(3), p.calls)
}

func TestGateway_NonRetryableFailsImmediately(t *testing.T) {
	p := &fakeProvider{name: "fake", failTimes: 99, retryable: false}
	gw := NewGateway(p, Config{MaxRetries: 3}, zap.NewNop())

	_, err := gw.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), p.calls)
}

func TestGateway_ExhaustsRetries(t *testing.T) {
	p := &fakeProvider{name: "fake", failTimes: 99, retryable: true}
	gw := NewGateway(p, Config{MaxRetries: 2, BaseBackoff: 0}, zap.NewNop())

	_, err := gw.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(3), p.calls) // initial + 2 retries
}

func TestGateway_PropagatesResponseMetadataOnSuccess(t *testing.T) {
	p := &fakeProvider{name: "fake"}
	gw := NewGateway(p, Config{MaxRetries: 1}, zap.NewNop())

	resp, err := gw.Complete(context.Background(), Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "fake-model", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestExtractJSON(t *testing.T) {
	out, err := ExtractJSON(`here is your answer: {"a": 1, "b": {"c": 2}} thanks`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, "b": {"c": 2}}`, out)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON("no json here")
	assert.Error(t, err)
}

func TestExtractJSON_PrefersLongestSpanOverFirst(t *testing.T) {
	out, err := ExtractJSON(`aside {"x": 1} then the real payload {"a": 1, "b": {"c": 2}, "d": 3}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, "b": {"c": 2}, "d": 3}`, out)
}

func TestExtractJSON_HandlesTopLevelArray(t *testing.T) {
	out, err := ExtractJSON(`here you go: [1, 2, {"a": 3}] done`)
	require.NoError(t, err)
	assert.Equal(t, `[1, 2, {"a": 3}]`, out)
}

func TestExtractJSON_ArrayLongerThanObjectWins(t *testing.T) {
	out, err := ExtractJSON(`{"x":1} and [{"a":1},{"b":2},{"c":3}]`)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},{"b":2},{"c":3}]`, out)
}
