package diagnosis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// State of one Detect call.
// Attempting(1) -> Success | Retrying -> Attempting(n+1) | Failed
type State string

const (
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Attempt record of one call to the detector
type Attempt struct {
	N         int
	Err       error
	Transient bool
	// Terminal is set when the attempt failed in a way no retry can fix
	// (panic with a non-error value, missing or invalid output).
	Terminal *detection.Error
	Duration time.Duration

	result *domain.Result
}

func (a Attempt) ok() bool { return a.Err == nil && a.Terminal == nil }

// Outcome of a whole Detect call
type Outcome struct {
	State    State
	Attempts []Attempt
	Waits    []time.Duration
	Result   *domain.Result
	Err      *detection.Error
}

// next transition after attempt a with a budget of maxAttempts
func next(a Attempt, maxAttempts int) State {
	switch {
	case a.ok():
		return StateSuccess
	case a.Terminal == nil && a.Transient && a.N < maxAttempts:
		return StateRetrying
	default:
		return StateFailed
	}
}

// run drives the retry state machine. Attempts are strictly sequential.
func (s *Service) run(ctx context.Context, in detection.Input) Outcome {
	maxAttempts := s.maxRetries()
	out := Outcome{State: StateAttempting}

	for n := 1; ; n++ {
		s.logger().Info("disease detection attempt", zap.Int("attempt", n), zap.Int("max_attempts", maxAttempts))
		a := s.attempt(ctx, in, n)
		out.Attempts = append(out.Attempts, a)

		out.State = next(a, maxAttempts)
		s.metrics().AttemptObserved(attemptLabel(a))

		switch out.State {
		case StateSuccess:
			out.Result = a.result
			return out

		case StateRetrying:
			wait := s.retryDelay() * time.Duration(n)
			s.logger().Warn("detection service unavailable, retrying",
				zap.Int("attempt", n),
				zap.Int("max_attempts", maxAttempts),
				zap.Duration("wait", wait),
				zap.Error(a.Err),
			)
			if err := s.sleeper().Sleep(ctx, wait); err != nil {
				out.State = StateFailed
				out.Err = detection.Failed(fmt.Errorf("retry wait interrupted: %w", err))
				return out
			}
			out.Waits = append(out.Waits, wait)
			out.State = StateAttempting

		default:
			if a.Terminal != nil {
				out.Err = a.Terminal
			} else {
				out.Err = detection.Classify(a.Err)
			}
			s.logger().Error("disease detection failed",
				zap.Int("attempt", n),
				zap.Int("max_attempts", maxAttempts),
				zap.String("kind", string(out.Err.Kind)),
				zap.Error(out.Err.Unwrap()),
			)
			return out
		}
	}
}

// attempt calls the detector once, turning panics and bad output into attempt data
func (s *Service) attempt(ctx context.Context, in detection.Input, n int) (a Attempt) {
	a.N = n
	start := s.clock().Now()
	defer func() {
		if v := recover(); v != nil {
			if err, ok := v.(error); ok {
				a.Err = err
				a.Transient = detection.IsTransient(err)
			} else {
				a.Terminal = detection.Unknown(v)
			}
		}
		a.Duration = s.clock().Now().Sub(start)
	}()

	res, err := s.Detector.Detect(ctx, in)
	switch {
	case err != nil:
		a.Err = err
		a.Transient = detection.IsTransient(err)
	case res == nil:
		a.Terminal = detection.Unknown(nil)
	default:
		if verr := res.Validate(); verr != nil {
			a.Terminal = detection.Failed(fmt.Errorf("invalid detection output: %w", verr))
			return a
		}
		a.result = res
	}
	return a
}

func attemptLabel(a Attempt) string {
	switch {
	case a.ok():
		return "success"
	case a.Transient:
		return "transient"
	default:
		return "error"
	}
}
