// Package worker runs the screening consumers.
package worker

import (
	"context"
	"log"
	"sync"

	"github.com/preetsahil/MP/internal/placement"
	"github.com/preetsahil/MP/internal/queue"
)

// Screener is the part of the placement service the worker drives.
type Screener interface {
	ScreenApplicants(ctx context.Context, jobID string) (placement.ScreeningResult, error)
}

// Run consumes q with n goroutines until ctx ends or the queue closes.
func Run(ctx context.Context, q queue.Queue, s Screener, n int) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				Handle(ctx, s, msg)
			}
		}()
	}
	wg.Wait()
	return nil
}

// Handle processes one message. Failures are logged and the message dropped;
// a later screening request recomputes the same roster.
func Handle(ctx context.Context, s Screener, msg queue.Message) {
	if msg.Type != queue.TypeScreen {
		log.Printf("skipping message %s of type %q", msg.ID, msg.Type)
		return
	}
	jobID := string(msg.Body)
	log.Printf("screening applicants for job %s", jobID)
	res, err := s.ScreenApplicants(ctx, jobID)
	if err != nil {
		log.Printf("screening job %s failed: %v", jobID, err)
		return
	}
	if res.Skipped {
		return
	}
	log.Printf("job %s screened: %d eligible, %d rejected", jobID, len(res.Eligible), len(res.Rejected))
}
