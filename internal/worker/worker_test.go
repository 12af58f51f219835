package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokenizer/tokenizertest"
)

func newTestWorker(t *testing.T, opts ...Option) (*Worker, *tokenizertest.Backend) {
	t.Helper()
	backend := tokenizertest.NewBackend()
	adapter := tokenizer.NewAdapter(tokenizertest.Catalog(), backend)
	w := Start(context.Background(), adapter, opts...)
	t.Cleanup(func() { _ = w.Close() })
	return w, backend
}

func next(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "message channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for worker message")
	}
	return Message{}
}

func nextFinal(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	for {
		msg := next(t, ch)
		if msg.Status != StatusProgress {
			return msg
		}
	}
}

func ready(t *testing.T, w *Worker) {
	t.Helper()
	msg := next(t, w.Messages())
	require.Equal(t, StatusReady, msg.Status)
	require.Equal(t, StateReady, w.State())
}

func TestWorker_ReportsReadyFirst(t *testing.T) {
	w, _ := newTestWorker(t)
	ready(t, w)
}

func TestWorker_Complete(t *testing.T) {
	w, _ := newTestWorker(t)
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 1, Text: "Hello, world!", ModelID: "alpha"}))
	msg := nextFinal(t, w.Messages())

	require.Equal(t, StatusComplete, msg.Status)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, 4, msg.TokenCount)
	assert.Equal(t, 13, msg.CharCount)
	assert.Equal(t, "alpha_base", msg.EncodingName)

	s := msg.Stream()
	require.NoError(t, s.Validate())
	assert.Equal(t, "Hello, world!", s.Text())
	assert.Equal(t, ",", s.Tokens[1].Text)
}

func TestWorker_EmptyText(t *testing.T) {
	w, _ := newTestWorker(t)
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 5, Text: "", ModelID: "alpha"}))
	msg := nextFinal(t, w.Messages())

	require.Equal(t, StatusComplete, msg.Status)
	assert.Equal(t, 0, msg.TokenCount)
	assert.Equal(t, 0, msg.CharCount)
	assert.Empty(t, msg.Tokens)
}

func TestWorker_ModelSwitchDisposesOnce(t *testing.T) {
	w, backend := newTestWorker(t)
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 1, Text: "one two", ModelID: "alpha"}))
	require.Equal(t, StatusComplete, nextFinal(t, w.Messages()).Status)
	require.NoError(t, w.Send(Request{ID: 2, Text: "one two", ModelID: "alpha"}))
	require.Equal(t, StatusComplete, nextFinal(t, w.Messages()).Status)
	assert.Equal(t, 1, backend.Opens("alpha"), "same model reuses the handle")

	require.NoError(t, w.Send(Request{ID: 3, Text: "three", ModelID: "beta"}))
	msg := nextFinal(t, w.Messages())
	require.Equal(t, StatusComplete, msg.Status)
	assert.Equal(t, "beta_base", msg.EncodingName)

	assert.Equal(t, 1, backend.Closes("alpha"))
	assert.Equal(t, 1, backend.Opens("beta"))
	assert.Equal(t, 0, backend.Closes("beta"))
	assert.Equal(t, 2, backend.Encodes("alpha"), "no encode reached the disposed handle")
	assert.Equal(t, "beta", w.CurrentModel())
}

func TestWorker_CloseDisposesLiveHandle(t *testing.T) {
	w, backend := newTestWorker(t)
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 1, Text: "x", ModelID: "alpha"}))
	nextFinal(t, w.Messages())

	require.NoError(t, w.Close())
	assert.Equal(t, 1, backend.Closes("alpha"))
	assert.Equal(t, StateTerminated, w.State())
	assert.ErrorIs(t, w.Send(Request{ID: 2, Text: "x", ModelID: "alpha"}), ErrTerminated)

	_, ok := <-w.Messages()
	assert.False(t, ok, "messages closed after Close")
}

func TestWorker_ErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(b *tokenizertest.Backend)
		req      Request
		wantCode Code
		wantIs   error
	}{
		{
			name:     "unsupported model",
			req:      Request{ID: 7, Text: "x", ModelID: "gpt-99"},
			wantCode: CodeUnsupportedModel,
			wantIs:   tokenizer.ErrUnsupportedModel,
		},
		{
			name:     "model load",
			setup:    func(b *tokenizertest.Backend) { b.FailModels["beta"] = true },
			req:      Request{ID: 8, Text: "x", ModelID: "beta"},
			wantCode: CodeModelLoad,
			wantIs:   tokenizer.ErrModelLoad,
		},
		{
			name:     "encoding panic",
			setup:    func(b *tokenizertest.Backend) { b.PanicOn = "boom" },
			req:      Request{ID: 9, Text: "boom", ModelID: "alpha"},
			wantCode: CodeEncoding,
			wantIs:   tokenizer.ErrEncoding,
		},
		{
			name:     "empty model id",
			req:      Request{ID: 10, Text: "x"},
			wantCode: CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := tokenizertest.NewBackend()
			if tt.setup != nil {
				tt.setup(backend)
			}
			w := Start(context.Background(), tokenizer.NewAdapter(tokenizertest.Catalog(), backend))
			defer w.Close()
			ready(t, w)

			require.NoError(t, w.Send(tt.req))
			msg := nextFinal(t, w.Messages())

			require.Equal(t, StatusError, msg.Status)
			assert.Equal(t, tt.req.ID, msg.ID)
			assert.Equal(t, tt.wantCode, msg.Code)
			assert.NotEmpty(t, msg.Error)
			if tt.wantIs != nil {
				assert.ErrorIs(t, msg.Err(), tt.wantIs)
			}

			// The worker keeps serving after a failed job.
			require.NoError(t, w.Send(Request{ID: 99, Text: "ok", ModelID: "alpha"}))
			assert.Equal(t, StatusComplete, nextFinal(t, w.Messages()).Status)
		})
	}
}

func TestWorker_UnsupportedModelKeepsHandle(t *testing.T) {
	w, backend := newTestWorker(t)
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 1, Text: "x", ModelID: "alpha"}))
	nextFinal(t, w.Messages())
	require.NoError(t, w.Send(Request{ID: 2, Text: "x", ModelID: "nope"}))
	require.Equal(t, StatusError, nextFinal(t, w.Messages()).Status)

	assert.Equal(t, 0, backend.Closes("alpha"))
	assert.Equal(t, "alpha", w.CurrentModel())
}

func TestWorker_RemoteProgress(t *testing.T) {
	backend := tokenizertest.NewBackend()
	backend.Progress = []float64{0, 50, 100}
	w := Start(context.Background(), tokenizer.NewAdapter(tokenizertest.Catalog(), backend))
	defer w.Close()
	ready(t, w)

	require.NoError(t, w.Send(Request{ID: 4, Text: "hi", ModelID: "remote"}))

	var progress []float64
	for {
		msg := next(t, w.Messages())
		if msg.Status == StatusProgress {
			assert.Equal(t, uint64(4), msg.ID)
			progress = append(progress, msg.Progress)
			continue
		}
		require.Equal(t, StatusComplete, msg.Status)
		break
	}
	assert.Equal(t, []float64{0, 50, 100}, progress)
}

func TestWorker_DrainAnswersQueuedRequests(t *testing.T) {
	w, _ := newTestWorker(t)
	ready(t, w)

	for id := uint64(1); id <= 3; id++ {
		require.NoError(t, w.Send(Request{ID: id, Text: "Hello, world!", ModelID: "alpha"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Drain(ctx))

	var ids []uint64
	for msg := range w.Messages() {
		if msg.Status == StatusComplete {
			ids = append(ids, msg.ID)
		}
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
	assert.Equal(t, StateTerminated, w.State())
	assert.ErrorIs(t, w.Send(Request{ID: 4, Text: "x", ModelID: "alpha"}), ErrTerminated)
}

func TestWorker_StartupFailure(t *testing.T) {
	w, _ := newTestWorker(t, WithBootstrap(func(ctx context.Context) error {
		return errors.New("no vocabulary directory")
	}))

	msg := next(t, w.Messages())
	require.Equal(t, StatusError, msg.Status)
	assert.Equal(t, CodeWorkerStartup, msg.Code)
	assert.Zero(t, msg.ID)
	assert.ErrorIs(t, msg.Err(), ErrWorkerStartup)

	err := w.WaitReady(context.Background())
	assert.ErrorIs(t, err, ErrWorkerStartup)

	_, ok := <-w.Messages()
	assert.False(t, ok)
	assert.ErrorIs(t, w.Send(Request{ID: 1, Text: "x", ModelID: "alpha"}), ErrTerminated)
}

func TestWorker_NoAdapterFailsStartup(t *testing.T) {
	w := Start(context.Background(), nil)
	defer w.Close()

	msg := next(t, w.Messages())
	assert.Equal(t, CodeWorkerStartup, msg.Code)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "State(42)", State(42).String())
}
