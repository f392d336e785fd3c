package services

import (
	"context"
	"sync"
	"testing"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/db/dbtest"
	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first conflicts streak writes with db.ErrConflict.
type flakyStore struct {
	*db.Gateway
	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (f *flakyStore) RunAtomic(ctx context.Context, body func(tx db.Tx) error) error {
	return f.Gateway.RunAtomic(ctx, func(tx db.Tx) error {
		f.mu.Lock()
		f.attempts++
		f.mu.Unlock()
		return body(&flakyTx{Tx: tx, store: f})
	})
}

type flakyTx struct {
	db.Tx
	store *flakyStore
}

func (t *flakyTx) SaveStreak(h *models.Habit) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.conflicts > 0 {
		t.store.conflicts--
		return db.ErrConflict
	}
	return t.Tx.SaveStreak(h)
}

func TestToggleCompletion_Scenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	assert.Equal(t, 0, habit.CurrentStreak)
	assert.Empty(t, habit.LastCompletedDate)

	steps := []struct {
		date          string
		wantCompleted bool
		wantStreak    int
		wantLast      string
	}{
		{"2024-06-10", true, 1, "2024-06-10"},
		{"2024-06-11", true, 2, "2024-06-11"},
		{"2024-06-11", false, 1, ""},
		{"2024-06-11", true, 1, "2024-06-11"},
	}

	for _, step := range steps {
		res, err := env.completions.ToggleCompletion(ctx, "u1", habit.ID, step.date)
		require.NoError(t, err)
		assert.Equal(t, step.wantCompleted, res.Completed, step.date)
		assert.Equal(t, step.wantStreak, res.Habit.CurrentStreak, step.date)
		assert.Equal(t, step.wantLast, res.Habit.LastCompletedDate, step.date)

		stored, err := env.habits.Get(ctx, "u1", habit.ID)
		require.NoError(t, err)
		assert.Equal(t, step.wantStreak, stored.CurrentStreak)
		assert.Equal(t, step.wantLast, stored.LastCompletedDate)

		done, err := env.completions.IsCompleted(ctx, "u1", habit.ID, step.date)
		require.NoError(t, err)
		assert.Equal(t, step.wantCompleted, done)
	}
}

func TestToggleCompletion_UnmarkOlderDateKeepsStreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	for _, date := range []string{"2024-06-10", "2024-06-11", "2024-06-12"} {
		_, err := env.completions.ToggleCompletion(ctx, "u1", habit.ID, date)
		require.NoError(t, err)
	}

	res, err := env.completions.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 3, res.Habit.CurrentStreak)
	assert.Equal(t, "2024-06-12", res.Habit.LastCompletedDate)

	snapshot, err := env.completions.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)
	assert.False(t, snapshot.IsCompleted(habit.ID, "2024-06-10"))
	assert.True(t, snapshot.IsCompleted(habit.ID, "2024-06-12"))
}

func TestToggleCompletion_TwiceLeavesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	for i := 0; i < 2; i++ {
		_, err := env.completions.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
		require.NoError(t, err)
	}

	records, err := env.completions.List(ctx, "u1", "2024-06-10")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestToggleCompletion_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)
	gone := env.createHabit(t, "u1", models.FrequencyDaily)
	require.NoError(t, env.habits.SoftDelete(ctx, "u1", gone.ID))

	cases := map[string]struct{ owner, habitID string }{
		"missing habit": {"u1", "does-not-exist"},
		"foreign owner": {"u2", habit.ID},
		"deleted habit": {"u1", gone.ID},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := env.completions.ToggleCompletion(ctx, tc.owner, tc.habitID, "2024-06-10")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, db.ErrNotFound)
		})
	}

	records, err := env.completions.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestToggleCompletion_RetriesConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	store := &flakyStore{Gateway: env.gateway, conflicts: 2}
	engine := NewCompletionEngine(store, env.hub, env.hub, env.publisher)

	res, err := engine.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Habit.CurrentStreak)
	assert.Equal(t, 3, store.attempts)

	records, err := env.completions.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestToggleCompletion_ExhaustedRetriesWriteNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	store := &flakyStore{Gateway: env.gateway, conflicts: 100}
	engine := NewCompletionEngine(store, env.hub, env.hub, env.publisher)

	res, err := engine.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, db.ErrTransactionFailed)

	records, err := env.completions.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, records)

	stored, err := env.habits.Get(ctx, "u1", habit.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentStreak)
	assert.Empty(t, stored.LastCompletedDate)
	assert.NotContains(t, env.publisher.Keys(), events.CompletionToggled)
}

func TestToggleCompletion_ConcurrentTogglesStayConsistent(t *testing.T) {
	gateway := dbtest.NewWithTx(t, config.TransactionConfig{MaxAttempts: 10})
	hub := feed.NewHub()
	pub := &recordingPublisher{}
	habits := NewHabitRegistry(gateway, hub, hub, pub)
	engine := NewCompletionEngine(gateway, hub, hub, pub)
	ctx := context.Background()

	habit, err := habits.Create(ctx, "u1", HabitInput{Title: "Run", Description: "5k", Time: "06:00", Frequency: models.FrequencyDaily})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := engine.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, records)

	stored, err := habits.Get(ctx, "u1", habit.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentStreak)
	assert.Empty(t, stored.LastCompletedDate)
}

func TestToggleCompletion_NotifiesAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	completions := env.hub.Subscribe(ctx, feed.Topic{Collection: feed.Completions, OwnerID: "u1"})
	habitsChanged := env.hub.Subscribe(ctx, feed.Topic{Collection: feed.Habits, OwnerID: "u1"})

	_, err := env.completions.ToggleCompletion(ctx, "u1", habit.ID, "2024-06-10")
	require.NoError(t, err)

	receive(t, completions.C)
	receive(t, habitsChanged.C)
	assert.Contains(t, env.publisher.Keys(), events.CompletionToggled)
}

func TestCompletionEngine_Subscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	habit := env.createHabit(t, "u1", models.FrequencyDaily)

	snapshots := env.completions.Subscribe(ctx, "u1")
	assert.Empty(t, receive(t, snapshots))

	_, err := env.completions.ToggleCompletion(context.Background(), "u1", habit.ID, "2024-06-10")
	require.NoError(t, err)

	next := receive(t, snapshots)
	assert.True(t, next.IsCompleted(habit.ID, "2024-06-10"))

	cancel()
	for range snapshots {
	}
}
