package survey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/cache"
	"github.com/perkloop/surveydata/model"
)

func newService(sources ...*fakeClient) *Service {
	return newServiceWindows(5*time.Minute, time.Minute, sources...)
}

func newServiceWindows(freshFor, refreshAfter time.Duration, sources ...*fakeClient) *Service {
	clients := make([]backend.Client, len(sources))
	for i, src := range sources {
		clients[i] = src
	}
	return New(cache.New(freshFor, refreshAfter), time.Second, clients...)
}

func TestGetAllSurveysCachesWithinFreshnessWindow(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First"}}
	svc := newService(primary)

	first := svc.GetAllSurveys(context.Background())
	require.True(t, first.OK)

	second := svc.GetAllSurveys(context.Background())
	require.True(t, second.OK)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 1, primary.callCount("getAllSurveys"), "second read must be served from cache")
}

func TestMutationInvalidatesCache(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First"}}
	svc := newService(primary)

	before := svc.GetAllSurveys(context.Background())
	require.True(t, before.OK)
	require.Len(t, before.Data, 1)

	created := svc.CreateSurvey(context.Background(), model.Survey{ID: "s2", Title: "Second"})
	require.True(t, created.OK)

	after := svc.GetAllSurveys(context.Background())
	require.True(t, after.OK)
	assert.Len(t, after.Data, 2, "read after mutation must not return the pre-mutation listing")
	assert.Equal(t, 2, primary.callCount("getAllSurveys"))
}

func TestUpdateAndDeleteInvalidateCache(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First"}}
	svc := newService(primary)

	require.True(t, svc.GetAllSurveys(context.Background()).OK)

	title := "Renamed"
	require.True(t, svc.UpdateSurvey(context.Background(), "s1", model.SurveyPatch{Title: &title}).OK)
	listing := svc.GetAllSurveys(context.Background())
	require.True(t, listing.OK)
	require.Len(t, listing.Data, 1)
	assert.Equal(t, "Renamed", listing.Data[0].Title)

	require.True(t, svc.DeleteSurvey(context.Background(), "s1").OK)
	listing = svc.GetAllSurveys(context.Background())
	require.True(t, listing.OK)
	assert.Empty(t, listing.Data)
}

func TestListingFallsBackToNextSource(t *testing.T) {
	primary := newFake("primary")
	primary.failAll(errUnreachable)
	fallbackSrc := newFake("local")
	fallbackSrc.surveys = []model.Survey{{ID: "s1", Title: "Held locally"}}
	svc := newService(primary, fallbackSrc)

	got := svc.GetAllSurveys(context.Background())
	require.True(t, got.OK, "fallback success must not propagate the primary failure")
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Held locally", got.Data[0].Title)

	// no retry loop: one attempt per source
	assert.Equal(t, 1, primary.callCount("getAllSurveys"))
	assert.Equal(t, 1, fallbackSrc.callCount("getAllSurveys"))
}

func TestListingFailsWhenAllSourcesFail(t *testing.T) {
	primary := newFake("primary")
	primary.failAll(errUnreachable)
	fallbackSrc := newFake("local")
	fallbackSrc.failAll(errUnreachable)
	svc := newService(primary, fallbackSrc)

	got := svc.GetAllSurveys(context.Background())
	require.False(t, got.OK)
	assert.Contains(t, got.Error, "unreachable")
}

func TestGetSurveyByIDFallsBackOnNotFound(t *testing.T) {
	primary := newFake("primary")
	fallbackSrc := newFake("local")
	fallbackSrc.surveys = []model.Survey{{ID: "s1", Title: "Only local"}}
	svc := newService(primary, fallbackSrc)

	got := svc.GetSurveyByID(context.Background(), "s1")
	require.True(t, got.OK)
	assert.Equal(t, "Only local", got.Data.Title)

	missing := svc.GetSurveyByID(context.Background(), "nope")
	require.False(t, missing.OK)
	assert.Contains(t, missing.Error, "not found")
}

func TestUpdateSurveyKeepsIdentifier(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "Original", UpdatedAt: "2020-01-01T00:00:00Z"}}
	svc := newService(primary)

	title := "Renamed"
	got := svc.UpdateSurvey(context.Background(), "s1", model.SurveyPatch{ID: "other", Title: &title})
	require.True(t, got.OK)
	assert.Equal(t, "s1", got.Data.ID)

	stored := svc.GetSurveyByID(context.Background(), "s1")
	require.True(t, stored.OK)
	assert.Equal(t, "s1", stored.Data.ID)
	assert.Equal(t, "Renamed", stored.Data.Title)
	assert.Greater(t, stored.Data.UpdatedAt, "2020-01-01T00:00:00Z")

	missing := svc.GetSurveyByID(context.Background(), "other")
	assert.False(t, missing.OK)
}

func TestUpdateWriteFallsBackToNextSource(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "Original"}}
	primary.fail["updateSurvey"] = errUnreachable
	fallbackSrc := newFake("local")
	svc := newService(primary, fallbackSrc)

	title := "Renamed"
	got := svc.UpdateSurvey(context.Background(), "s1", model.SurveyPatch{Title: &title})
	require.True(t, got.OK)
	assert.Equal(t, 1, fallbackSrc.callCount("updateSurvey"))
}

func TestToggleSurveyStatus(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First", IsActive: true}}
	svc := newService(primary)

	require.True(t, svc.ToggleSurveyStatus(context.Background(), "s1", false).OK)

	got := svc.GetSurveyByID(context.Background(), "s1")
	require.True(t, got.OK)
	assert.False(t, got.Data.IsActive)
}

func TestResponsesUsePrimaryOnly(t *testing.T) {
	primary := newFake("primary")
	primary.failAll(errUnreachable)
	fallbackSrc := newFake("local")
	svc := newService(primary, fallbackSrc)

	submitted := svc.SubmitResponse(context.Background(), model.SurveyResponse{SurveyID: "s1", UserID: "u1"})
	require.False(t, submitted.OK, "response submission must not fall back")
	assert.Zero(t, fallbackSrc.callCount("submitResponse"))

	responses := svc.GetSurveyResponses(context.Background(), "s1")
	require.False(t, responses.OK)
	assert.Zero(t, fallbackSrc.callCount("getSurveyResponses"))
}

func TestCompletionCheck(t *testing.T) {
	primary := newFake("primary")
	primary.responses = []model.SurveyResponse{
		{SurveyID: "s1", UserID: "u1"},
		{SurveyID: "s1", UserID: "u2"},
	}
	svc := newService(primary)

	assert.Equal(t, true, svc.HasUserCompletedSurvey(context.Background(), "s1", "u1").Completed)
	assert.Equal(t, false, svc.HasUserCompletedSurvey(context.Background(), "s1", "u3").Completed)
}

func TestCompletionCheckFailsOpen(t *testing.T) {
	primary := newFake("primary")
	primary.failAll(errUnreachable)
	svc := newService(primary)

	got := svc.HasUserCompletedSurvey(context.Background(), "s1", "u1")
	assert.False(t, got.Success)
	assert.False(t, got.Completed, "a failed check must report not-completed, never an error")
}

func TestActiveSurveysHonorDateInterval(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{
		{ID: "running", Title: "Q1 Satisfaction", IsActive: true, StartDate: "2000-01-01", EndDate: "2999-12-31"},
		{ID: "over", Title: "Ancient", IsActive: true, StartDate: "2000-01-01", EndDate: "2000-01-31"},
		{ID: "off", Title: "Disabled", IsActive: false, StartDate: "2000-01-01", EndDate: "2999-12-31"},
	}
	svc := newService(primary)

	got := svc.GetActiveSurveys(context.Background())
	require.True(t, got.OK)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "running", got.Data[0].ID)
}

func TestGetActiveSurveysForUser(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{
		{ID: "fresh", IsActive: true},
		{ID: "done", IsActive: true},
		{ID: "skipped", IsActive: true},
	}
	primary.responses = []model.SurveyResponse{{SurveyID: "done", UserID: "u1"}}
	svc := newService(primary)

	got := svc.GetActiveSurveysForUser(context.Background(), "u1", map[string]int{"skipped": 2})
	require.True(t, got.OK)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "fresh", got.Data[0].ID)
}

func TestSyncFetchRacingMutationIsDiscarded(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First"}}
	primary.listingGate = make(chan struct{})
	svc := New(cache.New(5*time.Minute, time.Minute), 5*time.Second, primary)

	// a cache-miss fetch snapshots the listing, then stalls in flight
	fetched := make(chan struct{})
	go func() {
		defer close(fetched)
		svc.GetAllSurveys(context.Background())
	}()
	require.Eventually(t, func() bool {
		return primary.callCount("getAllSurveys") == 1
	}, time.Second, 5*time.Millisecond)

	// a mutation lands and invalidates while the fetch is suspended
	require.True(t, svc.CreateSurvey(context.Background(), model.Survey{ID: "s2", Title: "Second"}).OK)

	close(primary.listingGate)
	<-fetched

	after := svc.GetAllSurveys(context.Background())
	require.True(t, after.OK)
	assert.Len(t, after.Data, 2, "read after mutation must not see the pre-mutation snapshot the stalled fetch carried")
}

func TestBackgroundRefreshReplacesAgedEntry(t *testing.T) {
	primary := newFake("primary")
	primary.surveys = []model.Survey{{ID: "s1", Title: "First"}}
	svc := newServiceWindows(5*time.Minute, 30*time.Millisecond, primary)

	require.True(t, svc.GetAllSurveys(context.Background()).OK)

	primary.mu.Lock()
	primary.surveys = append(primary.surveys, model.Survey{ID: "s2", Title: "Second"})
	primary.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	// still served from cache, but the aged hit spawns a refresh
	aged := svc.GetAllSurveys(context.Background())
	require.True(t, aged.OK)
	assert.Len(t, aged.Data, 1, "aged hit returns the cached listing without blocking")

	require.Eventually(t, func() bool {
		got := svc.GetAllSurveys(context.Background())
		return got.OK && len(got.Data) == 2
	}, time.Second, 10*time.Millisecond, "background refresh must eventually replace the entry")
}

func TestHangingPrimaryTimesOutAndFallsBack(t *testing.T) {
	primary := newFake("primary")
	primary.hang = true
	fallbackSrc := newFake("local")
	fallbackSrc.surveys = []model.Survey{{ID: "s1"}}

	cacheMgr := cache.New(5*time.Minute, time.Minute)
	svc := New(cacheMgr, 20*time.Millisecond, primary, fallbackSrc)

	start := time.Now()
	got := svc.GetAllSurveys(context.Background())
	require.True(t, got.OK)
	assert.Len(t, got.Data, 1)
	assert.Less(t, time.Since(start), time.Second, "per-attempt timeout must bound the hang")
}
