package artifact

import (
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired artifacts. It runs as a single
// background goroutine with its own shutdown hook, decoupled from
// request-handling concurrency.
type Sweeper struct {
	store     *Store
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	// Notify, when set, is called after every sweep with the number of
	// evicted artifacts and the number still stored. Set before Run.
	Notify func(evicted, stored int)

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a sweeper for the given store.
func NewSweeper(store *Store, interval, retention time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts the sweep loop. It returns immediately; call Stop to shut the
// loop down.
func (w *Sweeper) Run() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				n := w.store.SweepExpired(time.Now(), w.retention)
				if n > 0 {
					w.logger.Info("evicted expired artifacts", "count", n)
				}
				if w.Notify != nil {
					w.Notify(n, w.store.Len())
				}
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (w *Sweeper) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}
