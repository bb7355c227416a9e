package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const DefaultFeedChannel = "linkstudio_documents"

// Feed carries document-changed notifications between processes.
type Feed interface {
	Publish(ctx context.Context, path string) error
	// Listen calls fn with each changed path until ctx is done. An empty path
	// means notifications may have been lost and every subscriber should
	// re-read.
	Listen(ctx context.Context, fn func(path string)) error
}

// RedisFeed uses Redis pub/sub.
type RedisFeed struct {
	Client  *redis.Client
	Channel string
}

func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	if channel == "" {
		channel = DefaultFeedChannel
	}
	return &RedisFeed{Client: client, Channel: channel}
}

func (f *RedisFeed) Publish(ctx context.Context, path string) error {
	return f.Client.Publish(ctx, f.Channel, path).Err()
}

func (f *RedisFeed) Listen(ctx context.Context, fn func(path string)) error {
	sub := f.Client.Subscribe(ctx, f.Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.Channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

// PostgresFeed uses LISTEN/NOTIFY on the document database.
type PostgresFeed struct {
	DB      *gorm.DB
	DSN     string
	Channel string
	Log     zerolog.Logger
}

func NewPostgresFeed(db *gorm.DB, dsn, channel string, log zerolog.Logger) *PostgresFeed {
	if channel == "" {
		channel = DefaultFeedChannel
	}
	return &PostgresFeed{
		DB:      db,
		DSN:     dsn,
		Channel: channel,
		Log:     log.With().Str("component", "pgfeed").Logger(),
	}
}

func (f *PostgresFeed) Publish(ctx context.Context, path string) error {
	return f.DB.WithContext(ctx).Exec("select pg_notify(?, ?)", f.Channel, path).Error
}

func (f *PostgresFeed) Listen(ctx context.Context, fn func(path string)) error {
	l := pq.NewListener(f.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			f.Log.Warn().Err(err).Int("event", int(ev)).Msg("listener event")
		}
	})
	defer l.Close()

	if err := l.Listen(f.Channel); err != nil {
		return fmt.Errorf("listen %s: %w", f.Channel, err)
	}

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-l.Notify:
			// nil after a reconnect
			if n == nil {
				fn("")
				continue
			}
			fn(n.Extra)
		case <-ping.C:
			if err := l.Ping(); err != nil {
				f.Log.Warn().Err(err).Msg("listener ping failed")
			}
		}
	}
}
