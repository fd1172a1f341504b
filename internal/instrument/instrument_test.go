package instrument

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrix/internal/metrics"
	"agentrix/internal/session"
)

type emitted struct {
	sessionID string
	name      string
	data      interface{}
}

// recordingEmitter captures emissions synchronously, resolving the session like a pipeline does.
type recordingEmitter struct {
	events []emitted
	mutex  sync.Mutex
}

func (e *recordingEmitter) Send(ctx context.Context, metricName string, data interface{}) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	id, _ := session.FromContext(ctx)
	e.events = append(e.events, emitted{id, metricName, data})
}

func (e *recordingEmitter) all() []emitted {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]emitted(nil), e.events...)
}

func TestTrackAgentOutputEmitsResult(t *testing.T) {
	emitter := &recordingEmitter{}

	agent := TrackAgentOutput(emitter, func(ctx context.Context, input string) (string, error) {
		return strings.ToUpper(input), nil
	})

	output, err := agent(session.With(context.Background(), "sess-1"), "on time")
	require.NoError(t, err)
	assert.Equal(t, "ON TIME", output)

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, emitted{"sess-1", AgentOutputMetric, map[string]interface{}{"output": "ON TIME"}}, events[0])
}

func TestTrackUserInputEmitsResult(t *testing.T) {
	emitter := &recordingEmitter{}

	prompt := TrackUserInput(emitter, func(ctx context.Context, _ struct{}) (string, error) {
		return "where is flight 123", nil
	})

	text, err := prompt(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "where is flight 123", text)

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, UserInputMetric, events[0].name)
	assert.Equal(t, map[string]interface{}{"text": "where is flight 123"}, events[0].data)
}

func TestTrackedFailuresEmitNothing(t *testing.T) {
	emitter := &recordingEmitter{}
	boom := errors.New("agent failed")

	agent := TrackAgentOutput(emitter, func(ctx context.Context, input string) (string, error) {
		return "", boom
	})
	input := TrackUserInput(emitter, func(ctx context.Context, input string) (string, error) {
		return "partial", boom
	})

	_, err := agent(context.Background(), "x")
	assert.Same(t, boom, err)

	value, err := input(context.Background(), "x")
	assert.Same(t, boom, err)
	assert.Equal(t, "partial", value)

	assert.Empty(t, emitter.all())
}

func TestTrackedPanicsPropagateWithoutMetric(t *testing.T) {
	emitter := &recordingEmitter{}

	agent := TrackAgentOutput(emitter, func(ctx context.Context, input string) (string, error) {
		panic("agent crashed")
	})

	assert.PanicsWithValue(t, "agent crashed", func() {
		agent(context.Background(), "x")
	})
	assert.Empty(t, emitter.all())
}

func TestTrackAgentOutputAsync(t *testing.T) {
	emitter := &recordingEmitter{}
	release := make(chan struct{})

	agent := TrackAgentOutputAsync(emitter, func(ctx context.Context, input string) *Future[string] {
		return Async(func() (string, error) {
			<-release
			return "Flight " + input + " status: On time", nil
		})
	})

	future := agent(session.With(context.Background(), "sess-2"), "123")

	// Nothing is emitted until the inner computation completes.
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, emitter.all())

	close(release)

	output, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Flight 123 status: On time", output)

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, emitted{"sess-2", AgentOutputMetric, map[string]interface{}{"output": output}}, events[0])
}

func TestTrackUserInputAsyncFailure(t *testing.T) {
	emitter := &recordingEmitter{}
	boom := errors.New("read failed")

	input := TrackUserInputAsync(emitter, func(ctx context.Context, _ int) *Future[string] {
		return Resolved("", boom)
	})

	_, err := input(context.Background(), 0).Await(context.Background())
	assert.Same(t, boom, err)
	assert.Empty(t, emitter.all())

	input = TrackUserInputAsync(emitter, func(ctx context.Context, _ int) *Future[string] {
		return Resolved("hi", nil)
	})

	text, err := input(context.Background(), 0).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.Len(t, emitter.all(), 1)
}

func TestFutureAwaitHonorsContext(t *testing.T) {
	future := Async(func() (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := future.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFutureRecoversPanics(t *testing.T) {
	future := Async(func() (int, error) {
		panic("boom")
	})

	<-future.Done()
	_, err := future.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecorderExplicitFunctions(t *testing.T) {
	emitter := &recordingEmitter{}
	recorder := NewRecorder(emitter)
	ctx := session.With(context.Background(), "sess-3")

	recorder.RecordUserInput(ctx, "hello")
	recorder.RecordAgentOutput(ctx, "hi there")
	recorder.RecordDisplayedOutput(ctx, "hi there\n")
	recorder.LogUserAction(ctx, "tool_executed", map[string]interface{}{
		"tool":       "flight_lookup",
		"parameters": []string{"123"},
	})
	recorder.Send(ctx, "custom", 42)

	assert.Equal(t, []emitted{
		{"sess-3", UserInputMetric, map[string]interface{}{"text": "hello"}},
		{"sess-3", AgentOutputMetric, map[string]interface{}{"output": "hi there"}},
		{"sess-3", DisplayedOutputMetric, map[string]interface{}{"text": "hi there\n"}},
		{"sess-3", UserActionMetric, map[string]interface{}{
			"action": "tool_executed",
			"data": map[string]interface{}{
				"tool":       "flight_lookup",
				"parameters": []string{"123"},
			},
		}},
		{"sess-3", "custom", 42},
	}, emitter.all())
}

func TestRecordUserInputThroughPipeline(t *testing.T) {
	var received []metrics.Envelope
	sink := metrics.SinkFunc(func(ctx context.Context, envelope metrics.Envelope) error {
		received = append(received, envelope)
		return nil
	})

	pipeline := metrics.NewPipeline(sink, session.NewResolver(), nil, nil, metrics.PipelineOpts{})
	require.NoError(t, pipeline.Start())

	recorder := NewRecorder(pipeline)

	before := time.Now()
	recorder.RecordUserInput(session.With(context.Background(), "sess-1"), "hello")
	after := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pipeline.Shutdown(ctx))

	require.Len(t, received, 1)
	assert.Equal(t, "sess-1", received[0].SessionID)
	assert.Equal(t, UserInputMetric, received[0].MetricName)
	assert.Equal(t, map[string]interface{}{"text": "hello"}, received[0].Data)
	assert.WithinRange(t, received[0].Timestamp, before, after)
}
