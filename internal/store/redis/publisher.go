// Package redis publishes bot state to Redis: the latest ledger snapshot
// and summary as plain keys, signals and fills as capped streams, and every
// event on a pub/sub channel for dashboards.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"ganaka-trader/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultPrefix    = "ganaka"
	defaultStreamLen = 5000
	defaultLatestTTL = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	Prefix    string // key namespace, default "ganaka"
	StreamLen int64  // approximate MAXLEN for signal/fill streams
}

// Publisher writes bot events to Redis through a circuit breaker.
type Publisher struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	keys    keyspace
	maxLen  int64
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker exposes the circuit breaker for status reporting.
func (p *Publisher) Breaker() *CircuitBreaker { return p.breaker }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	maxLen := cfg.StreamLen
	if maxLen <= 0 {
		maxLen = defaultStreamLen
	}

	breaker := NewCircuitBreaker(5, 10*time.Second)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{
		client:  client,
		breaker: breaker,
		keys:    keyspace{prefix: prefix},
		maxLen:  maxLen,
	}, nil
}

// Run reads events from ch and publishes them.
// Blocks until ctx is cancelled or ch is closed.
func (p *Publisher) Run(ctx context.Context, ch <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(ctx, ev); err != nil && err != ErrCircuitOpen {
				log.Printf("[redis] publish %s %s: %v", ev.Type, ev.Symbol, err)
			}
		}
	}
}

// Publish writes one event in a single pipeline.
func (p *Publisher) Publish(ctx context.Context, ev model.Event) error {
	w := p.keys.plan(ev)
	payload := string(ev.JSON())

	return p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		if w.latest != "" {
			pipe.Set(ctx, w.latest, payload, defaultLatestTTL)
		}
		if w.stream != "" {
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: w.stream,
				MaxLen: p.maxLen,
				Approx: true,
				Values: map[string]interface{}{"data": payload},
			})
		}
		pipe.Publish(ctx, w.channel, payload)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// keyspace maps events to Redis keys.
type keyspace struct {
	prefix string
}

// writes lists the keys a single event touches. Empty latest/stream means
// that write is skipped.
type writes struct {
	latest  string
	stream  string
	channel string
}

func (k keyspace) plan(ev model.Event) writes {
	w := writes{channel: k.prefix + ":pub:" + string(ev.Type)}
	switch ev.Type {
	case model.EventSnapshot, model.EventSummary:
		w.latest = k.prefix + ":" + string(ev.Type) + ":latest"
	case model.EventSignal:
		w.stream = k.prefix + ":signals"
		w.channel += ":" + ev.Symbol
	case model.EventFill:
		w.stream = k.prefix + ":fills"
		w.channel += ":" + ev.Symbol
	}
	return w
}
