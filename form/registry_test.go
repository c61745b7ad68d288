package form

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/surveyflow/model"
)

func TestRegistryOpenReplacesAndFlushes(t *testing.T) {
	r := NewRegistry(time.Hour)
	defer r.Close(context.Background())

	key := Key{UserID: "u1", Slug: "feedback"}
	saved := &recorder{}
	first := New(feedbackSurvey(), nil, (&recorder{}).record, WithAutosave(time.Hour, saved.record))
	r.Open(context.Background(), key, first)
	require.NoError(t, first.SetAnswer("q1", "draft"))

	second := New(feedbackSurvey(), nil, (&recorder{}).record)
	r.Open(context.Background(), key, second)

	got, ok := r.Get(key)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, []model.Answers{{"q1": "draft"}}, saved.Calls())
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySweepEvictsIdleForms(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(time.Hour)
	r.now = clock.Now
	defer r.Close(context.Background())

	idle := Key{UserID: "u1", Slug: "a"}
	busy := Key{UserID: "u1", Slug: "b"}
	r.Open(context.Background(), idle, New(feedbackSurvey(), nil, (&recorder{}).record))
	r.Open(context.Background(), busy, New(feedbackSurvey(), nil, (&recorder{}).record))

	clock.Advance(45 * time.Minute)
	_, ok := r.Get(busy)
	require.True(t, ok)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, r.Sweep(context.Background()))

	_, ok = r.Get(idle)
	assert.False(t, ok)
	_, ok = r.Get(busy)
	assert.True(t, ok)
}

func TestRegistryCloseFlushesEverything(t *testing.T) {
	r := NewRegistry(time.Hour)
	saved := &recorder{}
	f := New(feedbackSurvey(), nil, (&recorder{}).record, WithAutosave(time.Hour, saved.record))
	r.Open(context.Background(), Key{UserID: "u1", Slug: "feedback"}, f)
	require.NoError(t, f.SetAnswer("q1", "bye"))

	r.Close(context.Background())

	assert.Equal(t, []model.Answers{{"q1": "bye"}}, saved.Calls())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(time.Hour)
	defer r.Close(context.Background())

	key := Key{UserID: "u1", Slug: "feedback"}
	r.Open(context.Background(), key, New(feedbackSurvey(), nil, (&recorder{}).record))
	require.NoError(t, r.Remove(context.Background(), key))
	require.NoError(t, r.Remove(context.Background(), key))

	_, ok := r.Get(key)
	assert.False(t, ok)
}
