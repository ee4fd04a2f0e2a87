package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaPublisher{w: w}
	ev := NewPlacementEvent(uuid.New(), "06", "California")
	ev.Score = 300
	require.NoError(t, k.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "06", string(w.msgs[0].Key))
	var got PlacementEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, EventRegionPlaced, got.EventType)
	assert.Equal(t, 300, got.Score)
	assert.Equal(t, ev.EventID, got.EventID)
}

func TestKafkaPublisherRejectsIncompleteEvent(t *testing.T) {
	k := &KafkaPublisher{w: &fakeWriter{}}
	assert.Error(t, k.Publish(context.Background(), PlacementEvent{RegionID: "06"}))
}

func TestAsyncDrainsOnClose(t *testing.T) {
	w := &fakeWriter{}
	a := NewAsync(&KafkaPublisher{w: w}, 8, time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish(context.Background(), NewPlacementEvent(uuid.New(), "01", "Alabama")))
	}
	require.NoError(t, a.Close())
	assert.Len(t, w.msgs, 5)
	assert.True(t, w.closed)
}

func TestAsyncPublishAfterCloseIsRejected(t *testing.T) {
	w := &fakeWriter{}
	a := NewAsync(&KafkaPublisher{w: w}, 8, time.Second)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Publish(context.Background(), NewPlacementEvent(uuid.New(), "01", "Alabama"))
			assert.ErrorIs(t, err, ErrPublisherClosed)
		}()
	}
	wg.Wait()
	assert.Empty(t, w.msgs)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), PlacementEvent{}))
	assert.NoError(t, p.Close())
}
