package store

import (
	"sync"

	"github.com/mroshb/word_game/pkg/logger"
)

// Broker fans values out to per-topic subscribers. Each subscriber owns a
// goroutine and a small buffer, so a slow callback never blocks a writer.
//
// With a merge function the buffer holds one value and merge decides what to
// keep when a new value arrives before the previous one was consumed. Without
// one, values queue up to the buffer size and overflow is dropped.
type Broker[T any] struct {
	mu     sync.Mutex
	nextID int
	topics map[string]map[int]*subscriber[T]
	buffer int
	merge  func(queued, incoming T) T
}

type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

func NewCoalescingBroker[T any](merge func(queued, incoming T) T) *Broker[T] {
	return &Broker[T]{
		topics: make(map[string]map[int]*subscriber[T]),
		buffer: 1,
		merge:  merge,
	}
}

func NewQueueBroker[T any](buffer int) *Broker[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker[T]{
		topics: make(map[string]map[int]*subscriber[T]),
		buffer: buffer,
	}
}

// Subscribe registers fn for topic and returns an idempotent unsubscribe.
func (b *Broker[T]) Subscribe(topic string, fn func(T)) func() {
	sub := &subscriber[T]{
		ch:   make(chan T, b.buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]*subscriber[T])
	}
	b.topics[topic][id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case v := <-sub.ch:
				fn(v)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], id)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// Publish offers v to every subscriber of topic.
func (b *Broker[T]) Publish(topic string, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.topics[topic] {
		b.offer(topic, sub, v)
	}
}

// Subscribers reports how many callbacks are registered for topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// offer runs under b.mu, so for one subscriber only the consumer goroutine
// races with it.
func (b *Broker[T]) offer(topic string, sub *subscriber[T], v T) {
	select {
	case sub.ch <- v:
		return
	default:
	}

	if b.merge == nil {
		logger.Warn("Dropping update for slow subscriber", "topic", topic)
		return
	}

	select {
	case queued := <-sub.ch:
		v = b.merge(queued, v)
	default:
	}
	select {
	case sub.ch <- v:
	default:
	}
}
