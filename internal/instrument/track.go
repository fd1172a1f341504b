package instrument

import (
	"context"

	"agentrix/internal/metrics"
)

const (
	// UserInputMetric names metrics carrying text entered by a user.
	UserInputMetric = "user_input"
	// AgentOutputMetric names metrics carrying output produced by an agent.
	AgentOutputMetric = "agent_output"
	// DisplayedOutputMetric names metrics carrying output displayed to a user.
	DisplayedOutputMetric = "displayed_output"
	// UserActionMetric names metrics describing a discrete user or tool action.
	UserActionMetric = "user_action"
)

// Func is a synchronous function that can be instrumented.
type Func[A, R any] func(ctx context.Context, arg A) (R, error)

// AsyncFunc is an asynchronous function that can be instrumented.
type AsyncFunc[A, R any] func(ctx context.Context, arg A) *Future[R]

// observer emits a metric derived from a successful call's result.
type observer[R any] func(ctx context.Context, value R)

// TrackUserInput wraps fn so that each successful call emits a user_input metric whose payload is
// {"text": value}.
func TrackUserInput[A, R any](emitter metrics.Emitter, fn Func[A, R]) Func[A, R] {
	return wrap(fn, userInputObserver[R](emitter))
}

// TrackUserInputAsync is the asynchronous counterpart of TrackUserInput.
func TrackUserInputAsync[A, R any](emitter metrics.Emitter, fn AsyncFunc[A, R]) AsyncFunc[A, R] {
	return wrapAsync(fn, userInputObserver[R](emitter))
}

// TrackAgentOutput wraps fn so that each successful call emits an agent_output metric whose
// payload is {"output": value}.
func TrackAgentOutput[A, R any](emitter metrics.Emitter, fn Func[A, R]) Func[A, R] {
	return wrap(fn, agentOutputObserver[R](emitter))
}

// TrackAgentOutputAsync is the asynchronous counterpart of TrackAgentOutput.
func TrackAgentOutputAsync[A, R any](emitter metrics.Emitter, fn AsyncFunc[A, R]) AsyncFunc[A, R] {
	return wrapAsync(fn, agentOutputObserver[R](emitter))
}

func userInputObserver[R any](emitter metrics.Emitter) observer[R] {
	return func(ctx context.Context, value R) {
		emitter.Send(ctx, UserInputMetric, map[string]interface{}{"text": value})
	}
}

func agentOutputObserver[R any](emitter metrics.Emitter) observer[R] {
	return func(ctx context.Context, value R) {
		emitter.Send(ctx, AgentOutputMetric, map[string]interface{}{"output": value})
	}
}

// wrap instruments a synchronous function. Failed calls are not observed.
func wrap[A, R any](fn Func[A, R], observe observer[R]) Func[A, R] {
	return func(ctx context.Context, arg A) (R, error) {
		value, err := fn(ctx, arg)
		if err != nil {
			return value, err
		}

		observe(ctx, value)

		return value, nil
	}
}

// wrapAsync instruments an asynchronous function. The returned future resolves after the inner
// future has resolved and, on success, after the result has been observed.
func wrapAsync[A, R any](fn AsyncFunc[A, R], observe observer[R]) AsyncFunc[A, R] {
	return func(ctx context.Context, arg A) *Future[R] {
		inner := fn(ctx, arg)

		return Async(func() (R, error) {
			value, err := inner.wait()
			if err != nil {
				return value, err
			}

			observe(ctx, value)

			return value, nil
		})
	}
}
