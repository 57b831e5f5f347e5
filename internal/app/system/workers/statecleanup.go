// internal/app/system/workers/statecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/assesshub/internal/app/store/oauthstate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// OAuthStateCleanup is a background worker that prunes expired OAuth state
// tokens. The collection also carries a TTL index; this worker is the backup
// for when TTL deletion lags.
type OAuthStateCleanup struct {
	states   *oauthstate.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewOAuthStateCleanup creates a cleanup worker with a 15-minute sweep.
func NewOAuthStateCleanup(db *mongo.Database, logger *zap.Logger) *OAuthStateCleanup {
	return &OAuthStateCleanup{
		states:   oauthstate.New(db),
		log:      logger,
		interval: 15 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *OAuthStateCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("oauth state cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OAuthStateCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("oauth state cleanup worker stopped")
}

func (w *OAuthStateCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *OAuthStateCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.states.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("failed to prune expired oauth states", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Debug("pruned expired oauth states", zap.Int64("count", count))
	}
}
