package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tolelom/scorechain/internal/obslog"
)

// DefaultStream is the Redis stream committed events are appended to.
const DefaultStream = "scorechain:events"

// queueSize bounds the events waiting for Redis. Beyond it events are dropped.
const queueSize = 1024

// RedisPublisher mirrors every emitted event into a Redis stream so external
// backends can consume them with XREAD or consumer groups. Attached events are
// queued and written by one goroutine, so a slow server never stalls the
// emitter.
type RedisPublisher struct {
	rdb     *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	log     *zap.Logger

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisPublisher connects to the Redis server at rawURL
// (redis://[:password@]host:port/db).
func NewRedisPublisher(rawURL, stream string, maxLen int64) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisPublisherWithClient(rdb, stream, maxLen), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(rdb *redis.Client, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	p := &RedisPublisher{
		rdb:     rdb,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 2 * time.Second,
		log:     obslog.L().Named("redis"),
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		p.Publish(ev)
	}
}

// Attach subscribes the publisher to every event on e.
func (p *RedisPublisher) Attach(e *Emitter) {
	e.SubscribeAll(p.enqueue)
}

func (p *RedisPublisher) enqueue(ev Event) {
	select {
	case p.queue <- ev:
	default:
		p.log.Warn("redis queue full, dropping event", zap.String("id", ev.ID), zap.String("type", string(ev.Type)))
	}
}

// Publish appends ev to the stream. Failures are logged, never propagated:
// the ledger has already committed the change the event describes.
func (p *RedisPublisher) Publish(ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		p.log.Error("marshal event", zap.String("id", ev.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":           ev.ID,
			"type":         string(ev.Type),
			"tx_id":        ev.TxID,
			"block_height": ev.BlockHeight,
			"timestamp":    ev.Timestamp,
			"data":         string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		p.log.Warn("xadd failed", zap.String("stream", p.stream), zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// Close writes the queued events and closes the client. Events emitted after
// Close must not reach the publisher.
func (p *RedisPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
		err = p.rdb.Close()
	})
	return err
}
