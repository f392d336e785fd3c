package services

import (
	"context"
	"testing"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectionLog_TextEntryGetsNoReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r, err := env.reflections.Append(ctx, "u1", ReflectionInput{Date: "2024-06-10", Text: "  Good day  "})
	require.NoError(t, err)
	assert.Equal(t, "Good day", r.Text)
	assert.Nil(t, r.VoiceNote())
	assert.Empty(t, r.AIResponse)

	time.Sleep(3 * testReflectionConfig.ResponseDelay)

	list, err := env.reflections.List(ctx, "u1", "2024-06-10")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReflectionLog_VoiceEntryGetsDelayedReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	voice := &models.VoiceNote{URL: "https://cdn.example/v1.webm", Duration: 12.5}

	first, err := env.reflections.Append(ctx, "u1", ReflectionInput{Date: "2024-06-10", Text: "Tired", VoiceNote: voice})
	require.NoError(t, err)
	assert.Empty(t, first.AIResponse)

	latest, err := env.reflections.Latest(ctx, "u1", "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	require.Eventually(t, func() bool {
		list, err := env.reflections.List(ctx, "u1", "2024-06-10")
		return err == nil && len(list) == 2
	}, 2*time.Second, 10*time.Millisecond)

	latest, err = env.reflections.Latest(ctx, "u1", "2024-06-10")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, latest.ID)
	assert.Equal(t, "Nice work.", latest.AIResponse)
	assert.Equal(t, "Tired", latest.Text)
	require.NotNil(t, latest.VoiceNote())
	assert.Equal(t, voice.URL, latest.VoiceNote().URL)
	assert.True(t, latest.CreatedAt.After(first.CreatedAt))
}

func TestReflectionLog_CloseFlushesPendingReplies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	voice := &models.VoiceNote{URL: "https://cdn.example/v2.webm", Duration: 3}

	for _, date := range []string{"2024-06-10", "2024-06-11", "2024-06-12"} {
		_, err := env.reflections.Append(ctx, "u1", ReflectionInput{Date: date, VoiceNote: voice})
		require.NoError(t, err)
	}
	env.reflections.Close()

	list, err := env.reflections.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, list, 6)
}

func TestReflectionLog_Subscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := env.reflections.Subscribe(ctx, "u1")
	assert.Empty(t, receive(t, snapshots))

	_, err := env.reflections.Append(context.Background(), "u1", ReflectionInput{Date: "2024-06-10", Text: "Hello"})
	require.NoError(t, err)

	list := receive(t, snapshots)
	require.Len(t, list, 1)
	assert.Equal(t, "Hello", list[0].Text)
}

func TestAssistantResponder_RejectsWhenClosedOrFull(t *testing.T) {
	written := make(chan ReflectionInput, 4)
	release := make(chan struct{})
	responder := NewAssistantResponder(config.ReflectionConfig{Workers: 1, QueueSize: 1}, func(_ context.Context, _ string, in ReflectionInput) (*models.Reflection, error) {
		<-release
		written <- in
		return &models.Reflection{ID: "r"}, nil
	})
	responder.Start()

	// the worker takes the first job and blocks on release, the second fills the queue
	require.True(t, responder.Enqueue(AssistantJob{OwnerID: "u1"}))
	require.Eventually(t, func() bool { return len(responder.jobs) == 0 }, time.Second, time.Millisecond)
	require.True(t, responder.Enqueue(AssistantJob{OwnerID: "u1"}))
	assert.False(t, responder.Enqueue(AssistantJob{OwnerID: "u1"}))

	close(release)
	responder.Close()
	assert.False(t, responder.Enqueue(AssistantJob{OwnerID: "u1"}))

	assert.Len(t, written, 2)
	in := <-written
	assert.Equal(t, config.DefaultResponseText, in.AIResponse)
}
