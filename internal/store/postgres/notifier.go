package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"

	"github.com/thymlegram/thymlegram/internal/store"
)

// All row changes funnel through one NOTIFY channel; the payload names the
// table and the listener fans events out per subscription.
const notifyChannel = "thymlegram_changes"

const subscriptionBuffer = 32

// installTriggers creates the notify function and attaches it to the tables
// the clients subscribe to. Re-running is harmless.
//
// NOTIFY payloads are capped at 8000 bytes by Postgres; message rows are short
// ciphertext, well inside the limit.
func installTriggers(db *gorm.DB) error {
	const fn = `
CREATE OR REPLACE FUNCTION thymlegram_notify_change() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify('` + notifyChannel + `', json_build_object(
    'table', TG_TABLE_NAME,
    'op', TG_OP,
    'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
    'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
  )::text);
  RETURN NULL;
END;
$$ LANGUAGE plpgsql;`
	if err := db.Exec(fn).Error; err != nil {
		return err
	}

	for _, table := range []string{store.TableMessages, store.TableTempMessages, store.TableTempContacts} {
		stmt := fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s_notify ON %[1]s;
CREATE TRIGGER %[1]s_notify
AFTER INSERT OR UPDATE OR DELETE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION thymlegram_notify_change();`, table)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

type listener struct {
	dsn string

	mu      sync.Mutex
	subs    map[string]map[*subscription]struct{}
	started bool
	cancel  context.CancelFunc
}

func newListener(dsn string) *listener {
	return &listener{dsn: dsn, subs: make(map[string]map[*subscription]struct{})}
}

type subscription struct {
	l     *listener
	table string
	ch    chan store.Event
	once  sync.Once
}

func (sub *subscription) Events() <-chan store.Event { return sub.ch }

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.l.mu.Lock()
		delete(sub.l.subs[sub.table], sub)
		close(sub.ch)
		sub.l.mu.Unlock()
	})
}

// subscribe registers a table subscription, starting the shared LISTEN loop on
// first use.
func (l *listener) subscribe(ctx context.Context, table string) (store.Subscription, error) {
	sub := &subscription{l: l, table: table, ch: make(chan store.Event, subscriptionBuffer)}

	l.mu.Lock()
	if l.subs[table] == nil {
		l.subs[table] = make(map[*subscription]struct{})
	}
	l.subs[table][sub] = struct{}{}
	if !l.started {
		loopCtx, cancel := context.WithCancel(context.Background())
		l.cancel = cancel
		l.started = true
		go l.run(loopCtx)
	}
	l.mu.Unlock()

	// Tie the subscription to the caller's context the way the remote
	// realtime channel would be torn down with the page.
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
	}
	return sub, nil
}

func (l *listener) close() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run holds a dedicated connection on LISTEN and dispatches payloads,
// reconnecting with a flat backoff when the connection drops. Events missed
// while reconnecting are not replayed; the polling floor covers the gap.
func (l *listener) run(ctx context.Context) {
	for {
		if err := l.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("change listener error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (l *listener) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var ev store.Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			log.Printf("change listener: bad payload: %v", err)
			continue
		}
		l.dispatch(ev)
	}
}

func (l *listener) dispatch(ev store.Event) {
	l.mu.Lock()
	for sub := range l.subs[ev.Table] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	l.mu.Unlock()
}
