package directory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wnt/mevx/internal/metrics"
	"github.com/wnt/mevx/internal/models"
)

type watcher struct {
	callback func([]models.User)
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// SubscribeUsers pushes the full ordered user collection to callback on start,
// after every write made through this client, and whenever a poll sees rows
// changed by another process. The returned function stops the subscription and
// may be called more than once, but not from inside callback.
func (c *Client) SubscribeUsers(callback func([]models.User)) func() {
	if c.db == nil {
		c.unavailable("subscribe")
		return func() {}
	}

	w := &watcher{
		callback: callback,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = w
	c.mu.Unlock()

	go c.watch(w)

	c.logger.Debug().Uint64("subscription", id).Msg("Subscribed to users")

	return func() {
		w.once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()

			close(w.stop)
			<-w.done
			c.logger.Debug().Uint64("subscription", id).Msg("Unsubscribed from users")
		})
	}
}

func (c *Client) watch(w *watcher) {
	defer close(w.done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	last := c.push(w, "", true)
	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
			last = c.push(w, last, true)
		case <-ticker.C:
			last = c.push(w, last, false)
		}
	}
}

// push lists the users and calls back when forced or when the fingerprint
// moved. It returns the fingerprint to compare the next poll against.
func (c *Client) push(w *watcher, last string, force bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.pollInterval+5*time.Second)
	defer cancel()

	users, err := c.ListUsers(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to refresh user subscription")
		return last
	}

	current := fingerprint(users)
	if !force && current == last {
		return last
	}

	select {
	case <-w.stop:
		return current
	default:
	}

	metrics.DirectoryPushes.Inc()
	w.callback(users)
	return current
}

// notify wakes every watcher after a local write
func (c *Client) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.watchers {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func fingerprint(users []models.User) string {
	var b strings.Builder
	for _, u := range users {
		b.WriteString(u.ID)
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(u.UpdatedAt.UnixNano(), 10))
		b.WriteByte(';')
	}
	return b.String()
}
