package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Change announces that a ticket was written.
type Change struct {
	TicketID  string `json:"ticketId"`
	StoreCode string `json:"storeCode"`
}

// ChangeFeed fans ticket changes out to live subscriptions.
type ChangeFeed interface {
	Publish(ctx context.Context, change Change) error
	Listen(fn func(Change)) (cancel func())
}

// LocalChangeFeed delivers changes to listeners in this process. Listeners
// must not block.
type LocalChangeFeed struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(Change)
}

// NewLocalChangeFeed constructs an in-process feed.
func NewLocalChangeFeed() *LocalChangeFeed {
	return &LocalChangeFeed{listeners: map[int]func(Change){}}
}

// Publish delivers change to every listener.
func (f *LocalChangeFeed) Publish(_ context.Context, change Change) error {
	f.mu.RLock()
	listeners := make([]func(Change), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

// Listen registers fn until cancel is called.
func (f *LocalChangeFeed) Listen(fn func(Change)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners.
func (f *LocalChangeFeed) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// RedisChangeFeed shares changes between instances over Redis Pub/Sub.
type RedisChangeFeed struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	local   *LocalChangeFeed
	logger  *zap.Logger
	done    chan struct{}
}

// NewRedisChangeFeed subscribes to channel and relays every message to local listeners.
func NewRedisChangeFeed(ctx context.Context, client *redis.Client, channel string, logger *zap.Logger) (*RedisChangeFeed, error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	feed := &RedisChangeFeed{
		client:  client,
		channel: channel,
		pubsub:  pubsub,
		local:   NewLocalChangeFeed(),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go feed.relay()
	return feed, nil
}

func (f *RedisChangeFeed) relay() {
	defer close(f.done)
	for msg := range f.pubsub.Channel() {
		var change Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			f.logger.Warn("discarding malformed change", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		_ = f.local.Publish(context.Background(), change)
	}
}

// Publish announces change to every instance, this one included.
func (f *RedisChangeFeed) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

// Listen registers fn until cancel is called.
func (f *RedisChangeFeed) Listen(fn func(Change)) func() {
	return f.local.Listen(fn)
}

// Close stops relaying.
func (f *RedisChangeFeed) Close() error {
	err := f.pubsub.Close()
	<-f.done
	return err
}
