package containers

import (
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Send once the mailbox has been closed.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is an unbounded multi-producer, multi-consumer queue between
// pipeline stages. Send never blocks, so two stages feeding each other cannot
// deadlock. Closing it never panics concurrent senders: they get
// ErrMailboxClosed.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	head   int
	closed bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewMailbox creates a mailbox. capacity only pre-sizes the queue.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Mailbox[T]{
		queue:  make([]T, 0, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *Mailbox[T]) Send(msg T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	m.wake()
	return nil
}

func (m *Mailbox[T]) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// TryRecv returns the next message without blocking.
func (m *Mailbox[T]) TryRecv() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.head == len(m.queue) {
		return zero, false
	}
	msg := m.queue[m.head]
	m.queue[m.head] = zero
	m.head++
	if m.head == len(m.queue) {
		m.queue = m.queue[:0]
		m.head = 0
	}
	return msg, true
}

// Recv blocks until a message arrives. After Close it keeps returning the
// remaining buffered messages and then reports false.
func (m *Mailbox[T]) Recv() (T, bool) {
	for {
		if msg, ok := m.TryRecv(); ok {
			if m.Len() > 0 {
				// hand the wakeup on to another consumer
				m.wake()
			}
			return msg, true
		}
		select {
		case <-m.notify:
		case <-m.done:
			return m.TryRecv()
		}
	}
}

// Drain hands every message currently queued to fn and returns how many were
// processed. Messages sent while draining may or may not be included.
func (m *Mailbox[T]) Drain(fn func(T)) int {
	n := 0
	for {
		msg, ok := m.TryRecv()
		if !ok {
			return n
		}
		fn(msg)
		n++
	}
}

// Len is the number of queued messages.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) - m.head
}

// Close stops accepting messages. Queued messages stay readable.
func (m *Mailbox[T]) Close() {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
	})
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}
