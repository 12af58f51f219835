package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/tokenscope/internal/tokens"
)

func TestMessage_MarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "ready",
			msg:  readyMessage(),
			want: `{"status":"ready"}`,
		},
		{
			name: "complete without tokens",
			msg:  Message{Status: StatusComplete, ID: 3, EncodingName: "cl100k_base"},
			want: `{"status":"complete","id":3,"tokens":[],"tokenCount":0,"charCount":0,"encodingName":"cl100k_base"}`,
		},
		{
			name: "startup error has no id",
			msg:  Message{Status: StatusError, Error: "boom", Code: CodeWorkerStartup},
			want: `{"status":"error","error":"boom","code":"worker_startup"}`,
		},
		{
			name: "job error",
			msg:  Message{Status: StatusError, ID: 9, Error: "unsupported model \"x\"", Code: CodeUnsupportedModel},
			want: `{"status":"error","id":9,"error":"unsupported model \"x\"","code":"unsupported_model"}`,
		},
		{
			name: "progress",
			msg:  progressMessage(2, 42),
			want: `{"status":"progress","id":2,"progress":42}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestMessage_MarshalUnknownStatus(t *testing.T) {
	_, err := json.Marshal(Message{Status: "weird"})
	assert.Error(t, err)

	var m Message
	assert.Error(t, json.Unmarshal([]byte(`{"status":"weird"}`), &m))
}

func TestMessage_CompleteOverTheWire(t *testing.T) {
	s := &tokens.Stream{
		Tokens: []tokens.Token{
			tokens.NewToken(9906, []byte("Hello"), 0),
			tokens.NewToken(11, []byte(","), 1),
		},
		TokenCount:   2,
		CharCount:    6,
		EncodingName: "cl100k_base",
	}

	data, err := json.Marshal(completeMessage(12, s))
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, uint64(12), got.ID)
	assert.Equal(t, s, got.Stream())
	assert.Nil(t, got.Err())
}

func TestRequest_JSONTags(t *testing.T) {
	data, err := json.Marshal(Request{ID: 1, Text: "hi", ModelID: "gpt-4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"text":"hi","modelId":"gpt-4"}`, string(data))
}
