package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perkloop/surveydata/model"
)

func listing(titles ...string) []model.Survey {
	surveys := make([]model.Survey, len(titles))
	for i, title := range titles {
		surveys[i] = model.Survey{ID: title, Title: title}
	}
	return surveys
}

func TestGetEmpty(t *testing.T) {
	m := New(5*time.Minute, time.Minute)
	_, ok := m.Get()
	assert.False(t, ok)
}

func TestPutThenGet(t *testing.T) {
	m := New(5*time.Minute, time.Minute)
	m.Put(listing("a", "b"))

	got, ok := m.Get()
	require.True(t, ok)
	assert.Len(t, got.Surveys, 2)
	assert.WithinDuration(t, time.Now(), got.FetchedAt, time.Second)
	assert.False(t, m.NeedsRefresh(got))
}

func TestNeedsRefreshPastSoftThreshold(t *testing.T) {
	m := New(5*time.Minute, 50*time.Millisecond)
	m.Put(listing("a"))

	got, ok := m.Get()
	require.True(t, ok)
	require.False(t, m.NeedsRefresh(got))

	time.Sleep(60 * time.Millisecond)
	got, ok = m.Get()
	require.True(t, ok, "entry must stay servable inside the freshness window")
	assert.True(t, m.NeedsRefresh(got))
}

func TestEntryExpires(t *testing.T) {
	m := New(30*time.Millisecond, 10*time.Millisecond)
	m.Put(listing("a"))

	time.Sleep(50 * time.Millisecond)
	_, ok := m.Get()
	assert.False(t, ok)
}

func TestInvalidateClearsEntry(t *testing.T) {
	m := New(5*time.Minute, time.Minute)
	m.Put(listing("a"))

	m.Invalidate()
	_, ok := m.Get()
	assert.False(t, ok)
}

func TestInvalidateCancelsRefreshContext(t *testing.T) {
	m := New(5*time.Minute, time.Minute)

	ctx, _ := m.RefreshToken()
	m.Invalidate()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("refresh context not cancelled by invalidation")
	}

	// the next refresh gets a live context again
	ctx, _ = m.RefreshToken()
	select {
	case <-ctx.Done():
		t.Fatal("fresh refresh context already cancelled")
	default:
	}
}

func TestStaleRefreshResultDiscarded(t *testing.T) {
	m := New(5*time.Minute, time.Minute)
	m.Put(listing("old"))

	_, gen := m.RefreshToken()
	m.Invalidate()

	kept := m.PutIfCurrent(gen, listing("stale"))
	assert.False(t, kept, "refresh that raced an invalidation must be discarded")
	_, ok := m.Get()
	assert.False(t, ok, "discarded refresh must not resurrect the entry")
}

func TestCurrentRefreshResultKept(t *testing.T) {
	m := New(5*time.Minute, time.Minute)
	m.Put(listing("old"))

	_, gen := m.RefreshToken()
	kept := m.PutIfCurrent(gen, listing("new"))
	require.True(t, kept)

	got, ok := m.Get()
	require.True(t, ok)
	require.Len(t, got.Surveys, 1)
	assert.Equal(t, "new", got.Surveys[0].Title)
}
