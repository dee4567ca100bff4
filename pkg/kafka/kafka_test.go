package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresh struct {
	Reason string `json:"reason"`
}

func TestEncodeMessages(t *testing.T) {
	msgs, err := encodeMessages([]Event{
		{Key: "a", Value: refresh{Reason: "publish"}},
		{Key: "b", Value: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("a"), msgs[0].Key)
	assert.JSONEq(t, `{"reason":"publish"}`, string(msgs[0].Value))
	assert.JSONEq(t, `{"n":1}`, string(msgs[1].Value))
}

func TestEncodeMessagesRejectsUnencodable(t *testing.T) {
	_, err := encodeMessages([]Event{{Key: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, `marshaling event "bad"`)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[refresh]([]byte(`{"reason":"cms publish"}`))
	require.NoError(t, err)
	assert.Equal(t, "cms publish", got.Reason)

	_, err = DecodeJSON[refresh]([]byte(`{`))
	assert.ErrorContains(t, err, "decoding kafka message")
}
