package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/crmarques/orgsync/resource"
)

type recordOutcome struct {
	key     string
	outcome string
	record  resource.Record
	diff    *RecordDiff
}

type recordWorker func(ctx context.Context, key string) (recordOutcome, error)

// runRecordWorkers runs work for every key on at most limit goroutines.
// Outcomes are handed to collect from a single goroutine, so collect may
// mutate shared state without locking. A worker error cancels the
// remaining work and is returned once every started worker finished.
func runRecordWorkers(ctx context.Context, limit int, keys []string, work recordWorker, collect func(recordOutcome)) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	results := make(chan recordOutcome)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range results {
			collect(result)
		}
	}()

	for _, key := range keys {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := work(groupCtx, key)
			if err != nil {
				return err
			}
			results <- result
			return nil
		})
	}

	err := group.Wait()
	close(results)
	<-collected
	return err
}
