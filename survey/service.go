// Package survey is the single entry point of the data-access layer. It
// hides the backend topology from callers: cache lookup first, then the
// ordered source chain with single-step fallback, every result normalized
// to the uniform Outcome shape.
package survey

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/cache"
	"github.com/perkloop/surveydata/log"
	"github.com/perkloop/surveydata/model"
	"github.com/perkloop/surveydata/outcome"
)

// MaxSkips is how often a user may dismiss a survey before it stops being
// offered to them. Skip counts are tracked by the caller.
const MaxSkips = 2

type Service struct {
	sources []backend.Client
	cache   *cache.Manager
	timeout time.Duration
}

// New builds a service over an ordered source chain: the primary durable
// backend first, the local-store fallback last. Responses and completion
// checks always go to the first source.
func New(cacheMgr *cache.Manager, timeout time.Duration, sources ...backend.Client) *Service {
	if len(sources) == 0 {
		panic("survey: no backend sources")
	}
	return &Service{
		sources: sources,
		cache:   cacheMgr,
		timeout: timeout,
	}
}

func (s *Service) primary() backend.Client {
	return s.sources[0]
}

// attempt runs one backend call under the per-attempt timeout.
func attempt[T any](ctx context.Context, s *Service, src backend.Client, call func(context.Context, backend.Client) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return call(actx, src)
}

// fallback walks the source chain: one step to the next source per failure,
// no retry of a failed source within a call. Only if the last source fails
// does the aggregated error surface.
func fallback[T any](ctx context.Context, s *Service, op string, call func(context.Context, backend.Client) (T, error)) (T, error) {
	var errs *multierror.Error
	for i, src := range s.sources {
		data, err := attempt(ctx, s, src, call)
		if err == nil {
			if i > 0 {
				log.Debugf("router.%s: served by fallback source %s", op, src.Name())
			}
			return data, nil
		}

		errs = multierror.Append(errs, errors.Wrap(err, src.Name()))
		if i < len(s.sources)-1 {
			log.Warnf("router.%s: %s failed, falling back: %s", op, src.Name(), err)
		}
	}

	var zero T
	return zero, errors.Wrapf(errs.ErrorOrNil(), "router.%s", op)
}

// GetAllSurveys serves from cache inside the freshness window, spawning a
// fire-and-forget refresh once the entry ages past the soft threshold. An
// expired or missing entry forces a synchronous fetch through the chain.
func (s *Service) GetAllSurveys(ctx context.Context) outcome.Outcome[[]model.Survey] {
	if listing, ok := s.cache.Get(); ok {
		if s.cache.NeedsRefresh(listing) {
			s.refreshInBackground()
		}
		return outcome.Ok(listing.Surveys)
	}

	// snapshot the generation before fetching: a mutation that lands while
	// this fetch is in flight invalidates the cache, and installing the
	// pre-mutation snapshot afterwards would hand it to the next reader
	_, gen := s.cache.RefreshToken()
	surveys, err := s.fetchListing(ctx)
	if err != nil {
		return outcome.Fail[[]model.Survey](err)
	}
	s.cache.PutIfCurrent(gen, surveys)
	return outcome.Ok(surveys)
}

func (s *Service) fetchListing(ctx context.Context) ([]model.Survey, error) {
	return fallback(ctx, s, "get_all_surveys", func(ctx context.Context, src backend.Client) ([]model.Survey, error) {
		return src.GetAllSurveys(ctx)
	})
}

// refreshInBackground re-derives the listing without blocking the caller.
// The generation token makes a refresh that raced an invalidation discard
// its result instead of resurrecting cleared data.
func (s *Service) refreshInBackground() {
	rctx, gen := s.cache.RefreshToken()
	go func() {
		surveys, err := s.fetchListing(rctx)
		if err != nil {
			log.Debugf("cache.refresh: %s", err)
			return
		}
		if !s.cache.PutIfCurrent(gen, surveys) {
			log.Debug("cache.refresh: result discarded, entry was invalidated")
		}
	}()
}

func (s *Service) GetActiveSurveys(ctx context.Context) outcome.Outcome[[]model.Survey] {
	surveys, err := fallback(ctx, s, "get_active_surveys", func(ctx context.Context, src backend.Client) ([]model.Survey, error) {
		return src.GetActiveSurveys(ctx)
	})
	if err != nil {
		return outcome.Fail[[]model.Survey](err)
	}
	return outcome.Ok(surveys)
}

// GetSurveyByID falls back on failure or a not-found signal, propagating the
// final miss only when every source came up empty.
func (s *Service) GetSurveyByID(ctx context.Context, id string) outcome.Outcome[model.Survey] {
	survey, err := s.getByID(ctx, id)
	if err != nil {
		return outcome.Fail[model.Survey](err)
	}
	return outcome.Ok(survey)
}

func (s *Service) getByID(ctx context.Context, id string) (model.Survey, error) {
	return fallback(ctx, s, "get_survey", func(ctx context.Context, src backend.Client) (model.Survey, error) {
		return src.GetSurveyByID(ctx, id)
	})
}

func (s *Service) CreateSurvey(ctx context.Context, survey model.Survey) outcome.Outcome[model.Ref] {
	now := model.Timestamp(time.Now())
	survey.CreatedAt = now
	survey.UpdatedAt = now

	id, err := fallback(ctx, s, "create_survey", func(ctx context.Context, src backend.Client) (string, error) {
		return src.CreateSurvey(ctx, survey)
	})
	if err != nil {
		return outcome.Fail[model.Ref](err)
	}

	s.cache.Invalidate()
	return outcome.Ok(model.Ref{ID: id})
}

// UpdateSurvey is read-modify-write: the existing survey comes through the
// fallback-aware read path, the patch is shallow-merged over it, the
// identifier stays whatever the handle says regardless of the payload, and
// updatedAt is stamped fresh before the write.
func (s *Service) UpdateSurvey(ctx context.Context, id string, patch model.SurveyPatch) outcome.Outcome[model.Ref] {
	survey, err := s.getByID(ctx, id)
	if err != nil {
		return outcome.Fail[model.Ref](err)
	}

	patch.Apply(&survey)
	survey.ID = id
	survey.UpdatedAt = model.Timestamp(time.Now())

	_, err = fallback(ctx, s, "update_survey", func(ctx context.Context, src backend.Client) (struct{}, error) {
		return struct{}{}, src.UpdateSurvey(ctx, survey)
	})
	if err != nil {
		return outcome.Fail[model.Ref](err)
	}

	s.cache.Invalidate()
	return outcome.Ok(model.Ref{ID: id})
}

func (s *Service) DeleteSurvey(ctx context.Context, id string) outcome.Outcome[struct{}] {
	_, err := fallback(ctx, s, "delete_survey", func(ctx context.Context, src backend.Client) (struct{}, error) {
		return struct{}{}, src.DeleteSurvey(ctx, id)
	})
	if err != nil {
		return outcome.Fail[struct{}](err)
	}

	s.cache.Invalidate()
	return outcome.Ok(struct{}{})
}

// ToggleSurveyStatus is sugar over UpdateSurvey.
func (s *Service) ToggleSurveyStatus(ctx context.Context, id string, isActive bool) outcome.Outcome[model.Ref] {
	return s.UpdateSurvey(ctx, id, model.SurveyPatch{IsActive: &isActive})
}

// SubmitResponse goes to the primary durable backend only: responses are
// write-once and completion checks must reflect true remote state, so the
// local fallback never absorbs them.
func (s *Service) SubmitResponse(ctx context.Context, resp model.SurveyResponse) outcome.Outcome[model.Ref] {
	if resp.SubmittedAt == "" {
		resp.SubmittedAt = model.Timestamp(time.Now())
	}

	id, err := attempt(ctx, s, s.primary(), func(ctx context.Context, src backend.Client) (string, error) {
		return src.SubmitResponse(ctx, resp)
	})
	if err != nil {
		return outcome.Fail[model.Ref](errors.Wrap(err, "router.submit_response"))
	}
	return outcome.Ok(model.Ref{ID: id})
}

func (s *Service) GetSurveyResponses(ctx context.Context, surveyID string) outcome.Outcome[[]model.SurveyResponse] {
	responses, err := attempt(ctx, s, s.primary(), func(ctx context.Context, src backend.Client) ([]model.SurveyResponse, error) {
		return src.GetSurveyResponses(ctx, surveyID)
	})
	if err != nil {
		return outcome.Fail[[]model.SurveyResponse](errors.Wrap(err, "router.get_responses"))
	}
	return outcome.Ok(responses)
}

// HasUserCompletedSurvey fails open: a query failure reports not-completed
// so a transient read problem never hides a survey from its audience.
func (s *Service) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) outcome.Completion {
	completed, err := attempt(ctx, s, s.primary(), func(ctx context.Context, src backend.Client) (bool, error) {
		return src.HasUserCompletedSurvey(ctx, surveyID, userID)
	})
	if err != nil {
		log.Debugf("router.completion_check: %s", err)
		return outcome.Completion{Success: false, Completed: false}
	}
	return outcome.Completion{Success: true, Completed: completed}
}

// GetActiveSurveysForUser narrows the active set to what the user should be
// shown: surveys they already completed are dropped, as are surveys they
// explicitly skipped MaxSkips times or more (skip counts come from the
// caller, this layer does not own that state).
func (s *Service) GetActiveSurveysForUser(ctx context.Context, userID string, skipCounts map[string]int) outcome.Outcome[[]model.Survey] {
	active := s.GetActiveSurveys(ctx)
	if !active.OK {
		return active
	}

	visible := []model.Survey{}
	for _, survey := range active.Data {
		if skipCounts[survey.ID] >= MaxSkips {
			continue
		}
		if s.HasUserCompletedSurvey(ctx, survey.ID, userID).Completed {
			continue
		}
		visible = append(visible, survey)
	}
	return outcome.Ok(visible)
}
