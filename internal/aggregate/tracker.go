package aggregate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// awaitAll blocks until every call is terminal and returns the outcomes in
// request order. It only returns early when ctx is done.
func awaitAll(ctx context.Context, calls []*Call) ([]Outcome, error) {
	outcomes := make([]Outcome, len(calls))
	for i, c := range calls {
		select {
		case <-c.future.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		outcomes[i] = c.outcome()
	}
	return outcomes, nil
}

// completionLog is an append-only list of outcomes in the order they were
// observed to finish.
type completionLog struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (l *completionLog) append(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, o)
}

func (l *completionLog) snapshot() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Outcome, len(l.outcomes))
	copy(out, l.outcomes)
	return out
}

// awaitCompletionOrder waits for every call and returns outcomes in the order
// the calls finished.
func awaitCompletionOrder(ctx context.Context, calls []*Call) ([]Outcome, error) {
	var (
		log completionLog
		wg  sync.WaitGroup
	)
	for _, c := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-c.future.Done():
				log.append(c.outcome())
			case <-ctx.Done():
			}
		}()
	}
	wg.Wait()

	out := log.snapshot()
	if len(out) < len(calls) {
		return nil, ctx.Err()
	}
	return out, nil
}

// awaitFailFast waits for every call but gives up as soon as one fails,
// returning that call's *CallError. Calls still in flight are abandoned, not
// cancelled.
func awaitFailFast(ctx context.Context, calls []*Call) ([]Outcome, error) {
	g, gctx := errgroup.WithContext(ctx)
	outcomes := make([]Outcome, len(calls))
	for i, c := range calls {
		g.Go(func() error {
			select {
			case <-c.future.Done():
			case <-gctx.Done():
				return gctx.Err()
			}
			o := c.outcome()
			outcomes[i] = o
			if ce := o.callError(); ce != nil {
				return ce
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
