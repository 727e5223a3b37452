package server

import (
	"context"
	"log"
	"time"
)

// historyRetention is how long transfer events are kept before pruning.
const historyRetention = 7 * 24 * time.Hour

// StartWorkers launches all background goroutines. Call with a cancellable
// context for graceful shutdown.
func (s *Server) StartWorkers(ctx context.Context) {
	if s.history != nil {
		go s.runHistoryPrune(ctx)
	}
}

// runHistoryPrune periodically deletes transfer events older than the
// retention window (every hour).
func (s *Server) runHistoryPrune(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
			n := s.pruneHistory()
			if n > 0 {
				log.Printf("[worker] pruned %d old transfer events", n)
			}
		}
	}
}

// pruneHistory removes expired events. Returns the number of rows removed.
func (s *Server) pruneHistory() int {
	cutoff := time.Now().Add(-historyRetention).Unix()
	n, err := s.history.Prune(cutoff)
	if err != nil {
		log.Printf("[worker] prune history: %v", err)
		return 0
	}
	return n
}
