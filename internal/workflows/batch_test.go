package workflows

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
	"github.com/navid-fn/pulse/pkg/faulttolerance"
)

func batchOf(n int) BatchInput {
	in := BatchInput{Kind: model.BatchKindNews}
	for i := 1; i <= n; i++ {
		in.Items = append(in.Items, model.BatchItem{
			ID:      fmt.Sprintf("item-%d", i),
			Kind:    model.BatchKindNews,
			Title:   fmt.Sprintf("headline %d", i),
			Content: "markets moved",
		})
	}
	return in
}

func TestSignalExtractionPartialFailure(t *testing.T) {
	deps := newFakeDeps()
	deps.extractFn = func(item model.BatchItem) (*inference.ExtractionResult, error) {
		if item.ID == "item-2" {
			return nil, faulttolerance.Permanent(errors.New("malformed content"))
		}
		return &inference.ExtractionResult{
			HasSignal:  true,
			Title:      "rate cut chatter",
			Confidence: 0.8,
			Severity:   "high",
			Sentiment:  "bullish",
		}, nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, batchOf(3))
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	status, err := h.Query(QueryStatus)
	require.NoError(t, err)
	got := status.(model.RunStatus)

	assert.Equal(t, model.PhaseCompleted, got.Phase)
	assert.Equal(t, 2, got.ItemsProcessed)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "item-2", got.Errors[0].ItemID)

	stored := deps.storedSignals()
	require.Len(t, stored, 2)
	for _, sig := range stored {
		assert.Equal(t, model.SignalTypeNewsContent, sig.Type)
		assert.Equal(t, model.SeverityHigh, sig.Severity)
	}

	// Each persisted signal's id ends up in the run status.
	require.Len(t, got.SignalIDs, 2)
	assert.Equal(t, stored[0].ID, got.SignalIDs[0])
	assert.Equal(t, stored[1].ID, got.SignalIDs[1])

	// High severity signals get pushed.
	assert.Contains(t, deps.notifications(), "signal:news_content")

	audits := deps.auditRecords()
	require.Len(t, audits, 2)
	assert.Equal(t, model.AuditStarted, audits[0].Event)
	assert.Equal(t, model.AuditCompleted, audits[1].Event)
	assert.Equal(t, 2, audits[1].ItemsProcessed)
	assert.Equal(t, 1, audits[1].ErrorCount)
}

func TestSignalExtractionCancelMidBatch(t *testing.T) {
	deps := newFakeDeps()

	started := make(chan struct{})
	var handle *workflow.Handle
	deps.extractFn = func(item model.BatchItem) (*inference.ExtractionResult, error) {
		if item.ID == "item-1" {
			// Cancel after the first item; the checkpoint before item two
			// must observe it.
			<-started
			handle.Signal(workflow.SignalCancel, nil)
		}
		return &inference.ExtractionResult{HasSignal: true, Title: item.Title, Severity: "low"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, batchOf(3))
	require.NoError(t, err)
	handle = h
	close(started)

	require.NoError(t, awaitDone(t, h))

	status, err := h.Query(QueryStatus)
	require.NoError(t, err)
	got := status.(model.RunStatus)

	assert.Equal(t, model.PhaseCompleted, got.Phase, "cancellation ends the run as completed")
	assert.Equal(t, 1, got.ItemsProcessed)
	assert.Empty(t, got.Errors)
	assert.Len(t, deps.storedSignals(), 1, "work done before the cancel is kept")
}

func TestSignalExtractionAggregateSentiment(t *testing.T) {
	deps := newFakeDeps()
	deps.sentimentFn = func(string) (inference.SentimentScore, error) {
		return inference.SentimentScore{Score: 0.9, Confidence: 0.9}, nil
	}

	in := batchOf(4)
	in.AggregateSentiment = true

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, in)
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	stored := deps.storedSignals()
	require.Len(t, stored, 1, "no per-item signals, only the aggregate")
	assert.Equal(t, model.SignalTypeSentiment, stored[0].Type)
	assert.Equal(t, model.SentimentBullish, stored[0].Sentiment)
	assert.InDelta(t, 0.9, stored[0].Confidence, 1e-9)
}

func TestSignalExtractionWeakSentimentStaysQuiet(t *testing.T) {
	deps := newFakeDeps()
	deps.sentimentFn = func(string) (inference.SentimentScore, error) {
		return inference.SentimentScore{Score: 0.2, Confidence: 0.9}, nil
	}

	in := batchOf(3)
	in.AggregateSentiment = true

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, in)
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	assert.Empty(t, deps.storedSignals())
}

func TestSignalExtractionSentimentOffByDefault(t *testing.T) {
	deps := newFakeDeps()
	sentimentCalls := 0
	deps.sentimentFn = func(string) (inference.SentimentScore, error) {
		sentimentCalls++
		return inference.SentimentScore{Score: 0.9, Confidence: 0.9}, nil
	}
	deps.extractFn = func(item model.BatchItem) (*inference.ExtractionResult, error) {
		return &inference.ExtractionResult{HasSignal: true, Title: item.Title, Severity: "low"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, batchOf(3))
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	assert.Zero(t, sentimentCalls, "a batch that did not ask for aggregation skips the sentiment reads")
	for _, sig := range deps.storedSignals() {
		assert.Equal(t, model.SignalTypeNewsContent, sig.Type)
	}
}

func TestSignalExtractionStoreFailureIsolated(t *testing.T) {
	deps := newFakeDeps()
	deps.extractFn = func(item model.BatchItem) (*inference.ExtractionResult, error) {
		return &inference.ExtractionResult{HasSignal: true, Title: item.Title, Severity: "low"}, nil
	}
	deps.storeFn = func(signals []*model.Signal) error {
		if len(signals) == 1 && signals[0].SourceID == "item-2" {
			return faulttolerance.Permanent(errors.New("insert rejected"))
		}
		return nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, batchOf(3))
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	status, err := h.Query(QueryStatus)
	require.NoError(t, err)
	got := status.(model.RunStatus)

	assert.Equal(t, model.PhaseCompleted, got.Phase, "one lost insert does not fail the batch")
	assert.Equal(t, 2, got.ItemsProcessed)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "item-2", got.Errors[0].ItemID)
	assert.Len(t, deps.storedSignals(), 2)
}

func TestSignalExtractionRejectsWrongInput(t *testing.T) {
	deps := newFakeDeps()
	w, rt := newTestWorker(t, deps, Config{})

	h, err := rt.Start(WorkflowSignalExtraction, w.SignalExtraction, "not a batch")
	require.NoError(t, err)
	assert.Error(t, awaitDone(t, h))
}
