package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/win-probability/internal/models"
)

// BatchResult is the outcome of one pair in a batch, in input position
type BatchResult struct {
	Pair       models.PredictionPair
	Prediction *models.WinPrediction
	Err        error
}

// BatchPredict scores every pair independently with at most workers running at
// once. A failing, timed out or cancelled pair yields an error entry and never
// aborts the rest of the batch.
func (e *Engine) BatchPredict(ctx context.Context, inputs []PairInput, workers int, itemTimeout time.Duration) []BatchResult {
	results := make([]BatchResult, len(inputs))
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		results[i].Pair = in.Pair()
		g.Go(func() error {
			itemCtx := ctx
			if itemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(ctx, itemTimeout)
				defer cancel()
			}
			pred, err := e.PredictWithContext(itemCtx, in)
			results[i].Prediction = pred
			results[i].Err = err
			if err != nil {
				e.mlLogger.LogPredictionError(in.Opportunity.ID, in.BidderID, err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// PredictWithContext runs PredictWinProbability, returning early with the
// context's error if it is done first.
func (e *Engine) PredictWithContext(ctx context.Context, in PairInput) (*models.WinPrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		pred *models.WinPrediction
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		pred, err := e.PredictWinProbability(in)
		done <- outcome{pred, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.pred, o.err
	}
}
