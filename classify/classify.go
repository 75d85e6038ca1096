// Package classify defines the digit classifier capability and ships a
// local dense-network implementation and a remote HTTP one.
package classify

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
)

// ErrUnavailable is the cause of every error a classifier returns when it
// cannot produce a digit: no model loaded, remote down, bad response.
var ErrUnavailable = errors.New("classifier unavailable")

// Classifier maps a model input to a digit in [0, 9].
type Classifier interface {
	Classify(ctx context.Context, input normalize.ModelInput) (int, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, input normalize.ModelInput) (int, error)

func (f Func) Classify(ctx context.Context, input normalize.ModelInput) (int, error) {
	return f(ctx, input)
}

// IsUnavailable reports whether err was caused by ErrUnavailable.
func IsUnavailable(err error) bool {
	return err != nil && errors.Cause(err) == ErrUnavailable
}

func unavailable(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnavailable, format, args...)
}

func checkDigit(d int) error {
	if d < 0 || d > 9 {
		return unavailable("digit %d out of range", d)
	}
	return nil
}

// Result is the outcome of classifying one input of a batch.
type Result struct {
	Index int
	Digit int
	Err   error
}

// Batch classifies inputs with at most parallelism requests in flight.
// Results are in input order.
func Batch(ctx context.Context, c Classifier, inputs []normalize.ModelInput, parallelism int64) []Result {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]Result, len(inputs))
	for i := range results {
		results[i] = Result{Index: i, Digit: -1}
	}
	if c == nil {
		for i := range results {
			results[i].Err = unavailable("no classifier configured")
		}
		return results
	}

	sem := semaphore.NewWeighted(parallelism)
	for i := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Trace.Printf("Failed to acquire semaphore: %v", err)
			for j := i; j < len(inputs); j++ {
				results[j].Err = err
			}
			break
		}
		go func(i int) {
			defer sem.Release(1)
			digit, err := c.Classify(ctx, inputs[i])
			if err != nil {
				log.Trace.Printf("Can't classify input %d: %v", i, err)
				results[i].Err = err
				return
			}
			results[i].Digit = digit
		}(i)
	}

	// wait for all goroutines to finish
	if err := sem.Acquire(context.Background(), parallelism); err != nil {
		log.Trace.Printf("Failed to acquire semaphore: %v", err)
	}

	return results
}
