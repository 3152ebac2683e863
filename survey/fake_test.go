package survey

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/model"
)

// fakeClient is an in-memory backend.Client that counts calls and can be
// forced to fail or hang per operation.
type fakeClient struct {
	name string

	mu        sync.Mutex
	surveys   []model.Survey
	responses []model.SurveyResponse
	calls     map[string]int
	fail      map[string]error
	hang      bool

	// listingGate, when set, suspends GetAllSurveys after it has snapshotted
	// the listing, until the channel is closed
	listingGate chan struct{}
}

var _ backend.Client = (*fakeClient)(nil)

func newFake(name string) *fakeClient {
	return &fakeClient{
		name:  name,
		calls: map[string]int{},
		fail:  map[string]error{},
	}
}

func (f *fakeClient) failAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range []string{
		"createSurvey", "getAllSurveys", "getActiveSurveys", "getSurveyById",
		"updateSurvey", "deleteSurvey", "submitResponse", "getSurveyResponses",
		"hasUserCompletedSurvey",
	} {
		f.fail[op] = err
	}
}

func (f *fakeClient) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.fail[op]
	hang := f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeClient) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) CreateSurvey(ctx context.Context, s model.Survey) (string, error) {
	if err := f.enter(ctx, "createSurvey"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = f.name + "-survey"
	}
	f.surveys = append(f.surveys, s)
	return s.ID, nil
}

func (f *fakeClient) GetAllSurveys(ctx context.Context) ([]model.Survey, error) {
	if err := f.enter(ctx, "getAllSurveys"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	snapshot := append([]model.Survey(nil), f.surveys...)
	gate := f.listingGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return snapshot, nil
}

func (f *fakeClient) GetActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	if err := f.enter(ctx, "getActiveSurveys"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return backend.FilterActive(f.surveys, time.Now()), nil
}

func (f *fakeClient) GetSurveyByID(ctx context.Context, id string) (model.Survey, error) {
	if err := f.enter(ctx, "getSurveyById"); err != nil {
		return model.Survey{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.surveys {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Survey{}, backend.ErrNotFound
}

func (f *fakeClient) UpdateSurvey(ctx context.Context, s model.Survey) error {
	if err := f.enter(ctx, "updateSurvey"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, prev := range f.surveys {
		if prev.ID == s.ID {
			f.surveys[i] = s
			return nil
		}
	}
	f.surveys = append(f.surveys, s)
	return nil
}

func (f *fakeClient) DeleteSurvey(ctx context.Context, id string) error {
	if err := f.enter(ctx, "deleteSurvey"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.surveys {
		if s.ID == id {
			f.surveys = append(f.surveys[:i], f.surveys[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeClient) SubmitResponse(ctx context.Context, r model.SurveyResponse) (string, error) {
	if err := f.enter(ctx, "submitResponse"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = f.name + "-response"
	}
	f.responses = append(f.responses, r)
	return r.ID, nil
}

func (f *fakeClient) GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error) {
	if err := f.enter(ctx, "getSurveyResponses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	matching := []model.SurveyResponse{}
	for _, r := range f.responses {
		if r.SurveyID == surveyID {
			matching = append(matching, r)
		}
	}
	return matching, nil
}

func (f *fakeClient) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error) {
	if err := f.enter(ctx, "hasUserCompletedSurvey"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.responses {
		if r.SurveyID == surveyID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

var errUnreachable = errors.New("backend unreachable")
