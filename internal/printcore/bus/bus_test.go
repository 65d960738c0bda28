package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidKinds(t *testing.T) {
	for _, kind := range []Kind{
		KindProbeAvailable, KindProbeUnavailable, KindPrintStarted,
		KindPrintComplete, KindPrintError, KindDeterrenceEvent,
	} {
		raw, err := json.Marshal(Message{Kind: kind, Generation: 7})
		require.NoError(t, err)
		msg, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, kind, msg.Kind)
		assert.Equal(t, uint64(7), msg.Generation)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"print-ready","generation":1}`))
	assert.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"kind":`))
	assert.Error(t, err)
}

func TestPublishAndReceive(t *testing.T) {
	b := New(4)
	defer b.Close()

	b.Publish(Message{Kind: KindPrintStarted, Generation: 1})
	msg := <-b.Messages()
	assert.Equal(t, KindPrintStarted, msg.Kind)
}

func TestPublishFullBufferDrops(t *testing.T) {
	var dropped []Message
	b := New(1, WithDropHook(func(m Message) { dropped = append(dropped, m) }))
	defer b.Close()

	b.Publish(Message{Kind: KindPrintStarted, Generation: 1})
	b.Publish(Message{Kind: KindPrintComplete, Generation: 1})

	require.Len(t, dropped, 1)
	assert.Equal(t, KindPrintComplete, dropped[0].Kind)
}

func TestPublishAfterCloseDrops(t *testing.T) {
	var dropped int
	b := New(4, WithDropHook(func(Message) { dropped++ }))
	b.Close()

	b.Publish(Message{Kind: KindPrintError, Generation: 1})
	assert.Equal(t, 1, dropped)

	// Close is idempotent.
	b.Close()
}

func TestDeliverRejectsUnknown(t *testing.T) {
	b := New(4)
	defer b.Close()

	err := b.Deliver([]byte(`{"kind":"made-up","generation":3}`))
	assert.Error(t, err)

	require.NoError(t, b.Deliver([]byte(`{"kind":"print-complete","generation":3}`)))
	msg := <-b.Messages()
	assert.Equal(t, KindPrintComplete, msg.Kind)
	assert.Equal(t, uint64(3), msg.Generation)
}
