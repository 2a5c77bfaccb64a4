package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type doc struct {
		Filename string `json:"filename"`
		Deleted  bool   `json:"deleted"`
	}
	got, err := DecodeJSON[doc]([]byte(`{"filename":"a.txt","deleted":true}`))
	require.NoError(t, err)
	assert.Equal(t, doc{Filename: "a.txt", Deleted: true}, got)

	_, err = DecodeJSON[doc]([]byte(`{"filename":`))
	assert.Error(t, err)
}

func TestPublishEmptyBatch(t *testing.T) {
	p := &Producer{}
	assert.NoError(t, p.PublishBatch(t.Context(), nil))
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{{Key: "a.txt", Value: map[string]string{"filename": "a.txt"}}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a.txt", string(msgs[0].Key))
	assert.JSONEq(t, `{"filename":"a.txt"}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestTemporary(t *testing.T) {
	assert.True(t, temporary(kafka.LeaderNotAvailable))
	assert.False(t, temporary(kafka.MessageSizeTooLarge))
	assert.False(t, temporary(context.Canceled))
	assert.False(t, temporary(kafka.WriteErrors{nil, kafka.MessageSizeTooLarge}))
}
