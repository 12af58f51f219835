package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokenizer/tokenizertest"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	adapter := tokenizer.NewAdapter(tokenizertest.Catalog(), tokenizertest.NewBackend())
	p, err := NewPool(context.Background(), adapter, size, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPool_Tokenize(t *testing.T) {
	p := newTestPool(t, 2)

	s, err := p.Tokenize(context.Background(), "Hello, world!", "alpha")
	require.NoError(t, err)
	assert.Equal(t, 4, s.TokenCount)
	assert.Equal(t, "alpha_base", s.EncodingName)

	_, err = p.Tokenize(context.Background(), "x", "nope")
	assert.ErrorIs(t, err, tokenizer.ErrUnsupportedModel)
}

func TestPool_ConcurrentCallersGetTheirOwnResults(t *testing.T) {
	p := newTestPool(t, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("caller %d says hi", i)
			model := "alpha"
			if i%2 == 0 {
				model = "beta"
			}
			s, err := p.Tokenize(context.Background(), text, model)
			if err != nil {
				errs <- err
				return
			}
			if s.Text() != text {
				errs <- fmt.Errorf("caller %d got %q", i, s.Text())
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	p := newTestPool(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Tokenize(ctx, "x", "alpha")
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned result does not leak into the next call.
	s, err := p.Tokenize(context.Background(), "fresh", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.Text())
}

func TestPool_Close(t *testing.T) {
	p := newTestPool(t, 2)
	assert.Equal(t, 2, p.Size())
	assert.NoError(t, p.CollectMetrics(context.Background()))

	require.NoError(t, p.Close())
	_, err := p.Tokenize(context.Background(), "x", "alpha")
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Error(t, p.CollectMetrics(context.Background()))
}
