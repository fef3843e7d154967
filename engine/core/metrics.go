package core

import (
	"sync"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/containers"
)

const AVG_COUNT = 30

// Metrics keeps a rolling average of loop durations and the observed rate
// per second. Sim and render loops each own one; readers may query from
// other goroutines.
type Metrics struct {
	mu          sync.RWMutex
	samples     *containers.RingQueue[time.Duration]
	avg         time.Duration
	frames      int
	accumulated time.Duration
	rate        float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		samples: containers.NewRingQueue[time.Duration](AVG_COUNT),
	}
}

func (m *Metrics) Update(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples.Push(elapsed)
	var sum time.Duration
	m.samples.Each(func(d time.Duration) { sum += d })
	m.avg = sum / time.Duration(m.samples.Len())

	// Calculate updates per second.
	m.accumulated += elapsed
	m.frames++
	if m.accumulated >= time.Second {
		m.rate = float64(m.frames) / m.accumulated.Seconds()
		m.accumulated = 0
		m.frames = 0
	}
}

func (m *Metrics) Average() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.avg
}

func (m *Metrics) Rate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate
}

func (m *Metrics) Frame() (float64, time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate, m.avg
}
