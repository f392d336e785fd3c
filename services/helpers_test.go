package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/db/dbtest"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type testEnv struct {
	gateway     *db.Gateway
	hub         *feed.Hub
	publisher   *recordingPublisher
	habits      *HabitRegistry
	completions *CompletionEngine
	reflections *ReflectionLog
	days        *DayService
}

var testReflectionConfig = config.ReflectionConfig{
	ResponseDelay: 30 * time.Millisecond,
	Workers:       2,
	QueueSize:     8,
	ResponseText:  "Nice work.",
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gateway := dbtest.New(t)
	hub := feed.NewHub()
	pub := &recordingPublisher{}

	env := &testEnv{
		gateway:     gateway,
		hub:         hub,
		publisher:   pub,
		habits:      NewHabitRegistry(gateway, hub, hub, pub),
		completions: NewCompletionEngine(gateway, hub, hub, pub),
		reflections: NewReflectionLog(gateway, hub, hub, pub, testReflectionConfig),
	}
	env.days = NewDayService(env.habits, env.completions, env.reflections)
	t.Cleanup(env.reflections.Close)
	return env
}

func (e *testEnv) createHabit(t *testing.T, owner string, freq models.Frequency, days ...int) *models.Habit {
	t.Helper()
	in := HabitInput{
		Title:       "Stretch",
		Description: "Five minutes",
		Time:        "08:00",
		Frequency:   freq,
		CustomDays:  days,
	}
	require.True(t, ValidateHabitInput(&in))
	habit, err := e.habits.Create(context.Background(), owner, in)
	require.NoError(t, err)
	return habit
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}
