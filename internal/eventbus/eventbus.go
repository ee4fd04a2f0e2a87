// 包 eventbus：已接受放置事件的可选外发（Kafka）
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventRegionPlaced：事件类型
const EventRegionPlaced = "region_placed"

// PlacementEvent：一次接受的放置
type PlacementEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	DropID     string    `json:"drop_id"`
	RegionID   string    `json:"region_id"`
	RegionName string    `json:"region_name"`
	Distance   float64   `json:"distance_px"`
	Score      int       `json:"score"`
	Placed     int       `json:"placed"`
	Total      int       `json:"total"`
	Won        bool      `json:"won"`
	At         time.Time `json:"at"`
}

// NewPlacementEvent：补齐事件 ID 与类型
func NewPlacementEvent(dropID uuid.UUID, regionID, regionName string) PlacementEvent {
	return PlacementEvent{
		EventID:    uuid.NewString(),
		EventType:  EventRegionPlaced,
		DropID:     dropID.String(),
		RegionID:   regionID,
		RegionName: regionName,
		At:         time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev PlacementEvent) error
	Close() error
}

// Nop：未配置消息队列时使用
type Nop struct{}

func (Nop) Publish(ctx context.Context, ev PlacementEvent) error { return nil }
func (Nop) Close() error                                        { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher：按区域 ID 作为消息键写入单一 topic
type KafkaPublisher struct {
	w messageWriter
}

func NewKafka(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev PlacementEvent) error {
	if ev.EventID == "" || ev.RegionID == "" {
		return fmt.Errorf("event missing required fields: event_id=%q, region_id=%q", ev.EventID, ev.RegionID)
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.RegionID), Value: msg})
}

func (k *KafkaPublisher) Close() error { return k.w.Close() }

// ErrQueueFull：异步队列已满，事件被丢弃
var ErrQueueFull = errors.New("event queue full")

// ErrPublisherClosed：Close 之后的发布被拒绝
var ErrPublisherClosed = errors.New("event publisher closed")

// 文档注释：异步发布包装
// 背景：会话循环不能被外部 I/O 阻塞，事件先入队，由独立 goroutine 依次发布。
// 约束：队列满时丢弃并计数；Close 等待已入队事件发布完成，之后的 Publish 返回 ErrPublisherClosed。
type Async struct {
	mu      sync.RWMutex
	closed  bool
	next    Publisher
	ch      chan PlacementEvent
	done    chan struct{}
	timeout time.Duration
}

func NewAsync(next Publisher, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{next: next, ch: make(chan PlacementEvent, buffer), done: make(chan struct{}), timeout: timeout}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Publish(ctx, ev)
		cancel()
		if err != nil {
			metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
			logger.L().Warn("event_publish_error", "region", ev.RegionID, "err", err)
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	}
}

func (a *Async) Publish(ctx context.Context, ev PlacementEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		metrics.EventsPublishedTotal.WithLabelValues("dropped").Inc()
		return ErrPublisherClosed
	}
	select {
	case a.ch <- ev:
		return nil
	default:
		metrics.EventsPublishedTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	<-a.done
	return a.next.Close()
}
