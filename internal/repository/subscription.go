package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

type lister func(ctx context.Context, query TicketQuery) ([]*domain.Ticket, error)

// watcher re-reads the query whenever the feed reports a matching change.
// Bursts of changes collapse into one re-read.
type watcher struct {
	cancel     context.CancelFunc
	stopListen func()
	once       sync.Once
	done       chan struct{}
}

func watch(ctx context.Context, feed ChangeFeed, list lister, query TicketQuery, fn SnapshotFunc, logger *zap.Logger) *watcher {
	ctx, cancel := context.WithCancel(ctx)
	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}

	w := &watcher{cancel: cancel, done: make(chan struct{})}
	w.stopListen = feed.Listen(func(change Change) {
		if !query.Matches(change.StoreCode) {
			return
		}
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(w.done)
		defer w.stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
			}
			tickets, err := list(ctx, query)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("subscription refresh failed", zap.String("store_code", query.StoreCode), zap.Error(err))
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fn(tickets)
		}
	}()
	return w
}

// Unsubscribe detaches from the feed and waits for an in-flight delivery to
// finish, so fn is never called after it returns.
func (w *watcher) Unsubscribe() {
	w.stop()
	<-w.done
}

func (w *watcher) stop() {
	w.once.Do(func() {
		w.stopListen()
		w.cancel()
	})
}
