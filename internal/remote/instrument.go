package remote

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/idilsaglam/livetodo/internal/model"
)

// Metrics are the collectors recorded by an instrumented store.
type Metrics struct {
	Requests   *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	FeedEvents *prometheus.CounterVec
}

// NewMetrics registers the store collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livetodo_remote_requests_total",
				Help: "Total number of remote store calls",
			},
			[]string{"op", "status"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livetodo_remote_request_duration_seconds",
				Help:    "Duration of remote store calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		FeedEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livetodo_feed_events_total",
				Help: "Total number of realtime events received",
			},
			[]string{"type"},
		),
	}
}

type instrumented struct {
	next Store
	m    *Metrics
}

// Instrument wraps s so every call is counted and timed in m.
func Instrument(s Store, m *Metrics) Store {
	return &instrumented{next: s, m: m}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	s.m.Requests.WithLabelValues(op, status).Inc()
}

func (s *instrumented) Fetch(ctx context.Context) (todos []model.Todo, err error) {
	defer func(start time.Time) { s.observe("fetch", start, err) }(time.Now())
	return s.next.Fetch(ctx)
}

func (s *instrumented) Insert(ctx context.Context, task string) (t model.Todo, err error) {
	defer func(start time.Time) { s.observe("insert", start, err) }(time.Now())
	return s.next.Insert(ctx, task)
}

func (s *instrumented) Update(ctx context.Context, id int64, p model.Patch) (t model.Todo, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, id, p)
}

func (s *instrumented) Delete(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *instrumented) Subscribe(ctx context.Context) (Subscription, error) {
	start := time.Now()
	sub, err := s.next.Subscribe(ctx)
	s.observe("subscribe", start, err)
	if err != nil {
		return nil, err
	}
	return newCountingSub(sub, s.m.FeedEvents), nil
}

// countingSub forwards events from the wrapped subscription, counting each.
type countingSub struct {
	inner  Subscription
	events chan model.Event
	done   chan struct{}
	once   sync.Once
}

func newCountingSub(inner Subscription, c *prometheus.CounterVec) *countingSub {
	cs := &countingSub{
		inner:  inner,
		events: make(chan model.Event),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(cs.events)
		for ev := range inner.Events() {
			c.WithLabelValues(string(ev.Type)).Inc()
			select {
			case cs.events <- ev:
			case <-cs.done:
				return
			}
		}
	}()
	return cs
}

func (s *countingSub) Events() <-chan model.Event { return s.events }

func (s *countingSub) Err() error { return s.inner.Err() }

func (s *countingSub) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.inner.Close()
}
