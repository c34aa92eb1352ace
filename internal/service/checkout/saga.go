package checkout

import (
	"context"

	"go.uber.org/zap"
)

// sagaStep is one persistence step of order creation. The steps are not
// wrapped in a store transaction, so each carries an optional compensation
// that undoes its write when a later step fails.
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSaga executes steps in order. On failure it runs the compensations of
// completed steps in reverse; compensation failures are logged and skipped,
// leaving cleanup to operators rather than masking the original error.
func runSaga(ctx context.Context, logger *zap.Logger, steps []sagaStep) error {
	completed := make([]sagaStep, 0, len(steps))
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			for i := len(completed) - 1; i >= 0; i-- {
				prev := completed[i]
				if prev.compensate == nil {
					continue
				}
				if compErr := prev.compensate(ctx); compErr != nil && logger != nil {
					logger.Error("saga compensation failed",
						zap.String("step", prev.name),
						zap.Error(compErr),
					)
				}
			}
			if logger != nil {
				logger.Error("order creation step failed", zap.String("step", step.name), zap.Error(err))
			}
			return err
		}
		completed = append(completed, step)
	}
	return nil
}
