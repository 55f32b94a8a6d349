package thrashing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steadyCounter reports a counter growing at a fixed rate on the mock clock.
func steadyCounter(mock *clock.Mock, perSecond float64) FaultCounter {
	start := mock.Now()
	return FaultCounterFunc(func() (uint64, error) {
		return uint64(mock.Now().Sub(start).Seconds() * perSecond), nil
	})
}

func TestNewMonitorValidation(t *testing.T) {
	_, err := NewMonitor(nil, time.Second)
	assert.Error(t, err)

	d, err := NewDetector(&fakeCounter{}, WithClock(clock.NewMock()))
	require.NoError(t, err)
	_, err = NewMonitor(d, 0)
	assert.Error(t, err)
}

func TestMonitorTickRunsHooks(t *testing.T) {
	h := newHarness(t)
	m, err := NewMonitor(h.detector, time.Second)
	require.NoError(t, err)

	var evaluations int
	var transitions []Transition
	m.OnEvaluate(func(Status) { evaluations++ })
	m.OnChange(func(tr Transition) { transitions = append(transitions, tr) })

	for i := 0; i < 6; i++ {
		h.clock.Add(time.Second)
		h.counter.count += 5
		m.Tick()
	}

	assert.Equal(t, 6, evaluations)
	require.Len(t, transitions, 1)
	assert.Equal(t, LevelNone, transitions[0].From)
	assert.Equal(t, LevelSuspected, transitions[0].To)
	assert.Equal(t, h.clock.Now(), transitions[0].At)
	assert.Equal(t, LevelSuspected, transitions[0].Status.Level)
	assert.Equal(t, LevelSuspected, m.Level())
	assert.Equal(t, LevelSuspected, m.Status().Level)
}

func TestMonitorRunUntilCancelled(t *testing.T) {
	mock := clock.NewMock()
	d, err := NewDetector(steadyCounter(mock, 50), WithClock(mock))
	require.NoError(t, err)
	m, err := NewMonitor(d, time.Second)
	require.NoError(t, err)

	var mu sync.Mutex
	var changes []Level
	m.OnChange(func(tr Transition) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, tr.To)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return m.Level() == LevelConfirmed
	}, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Level{LevelSuspected, LevelConfirmed}, changes)
}
