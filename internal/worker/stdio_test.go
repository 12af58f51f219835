package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokenizer/tokenizertest"
)

func TestServeStdio(t *testing.T) {
	reqR, reqW := io.Pipe()
	msgR, msgW := io.Pipe()

	adapter := tokenizer.NewAdapter(tokenizertest.Catalog(), tokenizertest.NewBackend())

	served := make(chan error, 1)
	go func() {
		err := ServeStdio(context.Background(), reqR, msgW, adapter)
		_ = msgW.Close()
		served <- err
	}()

	replies := make(chan Message, 16)
	go func() {
		defer close(replies)
		dec := json.NewDecoder(bufio.NewReader(msgR))
		for {
			var msg Message
			if err := dec.Decode(&msg); err != nil {
				return
			}
			replies <- msg
		}
	}()

	assert.Equal(t, StatusReady, next(t, replies).Status)

	enc := json.NewEncoder(reqW)
	require.NoError(t, enc.Encode(Request{ID: 1, Text: "Hello, world!", ModelID: "alpha"}))

	msg := nextFinal(t, replies)
	require.Equal(t, StatusComplete, msg.Status)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, 4, msg.TokenCount)
	assert.Equal(t, "Hello, world!", msg.Stream().Text())

	require.NoError(t, enc.Encode(Request{ID: 2, Text: "x", ModelID: "missing"}))
	msg = nextFinal(t, replies)
	assert.Equal(t, CodeUnsupportedModel, msg.Code)

	require.NoError(t, reqW.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio did not return after EOF")
	}
}

func TestServeStdio_AnswersQueuedRequestsAfterEOF(t *testing.T) {
	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	for id := uint64(1); id <= 5; id++ {
		require.NoError(t, enc.Encode(Request{ID: id, Text: "Hello, world!", ModelID: "alpha"}))
	}

	adapter := tokenizer.NewAdapter(tokenizertest.Catalog(), tokenizertest.NewBackend())
	var out bytes.Buffer

	served := make(chan error, 1)
	go func() {
		served <- ServeStdio(context.Background(), &in, &out, adapter)
	}()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio did not return after EOF")
	}

	answered := map[uint64]bool{}
	dec := json.NewDecoder(&out)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			break
		}
		if msg.Status == StatusComplete {
			assert.Equal(t, 4, msg.TokenCount)
			answered[msg.ID] = true
		}
	}
	assert.Len(t, answered, 5)
}

func TestServeStdio_MalformedRequest(t *testing.T) {
	reqR, reqW := io.Pipe()
	adapter := tokenizer.NewAdapter(tokenizertest.Catalog(), tokenizertest.NewBackend())

	served := make(chan error, 1)
	go func() {
		served <- ServeStdio(context.Background(), reqR, io.Discard, adapter)
	}()

	_, err := reqW.Write([]byte("{not json\n"))
	require.NoError(t, err)

	select {
	case err := <-served:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio did not return on malformed input")
	}
}
