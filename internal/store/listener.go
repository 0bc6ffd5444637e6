package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mroshb/word_game/pkg/logger"
)

// Listener holds a dedicated connection on ChangeChannel and feeds changes made
// by other instances into the store's local subscribers.
type Listener struct {
	dsn     string
	store   *PostgresRoomStore
	backoff time.Duration
}

func NewListener(dsn string, store *PostgresRoomStore) *Listener {
	return &Listener{dsn: dsn, store: store, backoff: 2 * time.Second}
}

// Run blocks until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Room change listener disconnected", "error", err, "retry_in", l.backoff.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return err
	}
	logger.Info("Listening for room changes", "channel", ChangeChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.store.handleNotice(ctx, notification.Payload)
	}
}
