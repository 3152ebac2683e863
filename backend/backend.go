// Package backend defines the contract every survey data source satisfies:
// the spreadsheet web-app API, the document database, the relational
// database and the local store all expose the same logical operations, so
// the router can try them in order without caring which one answered.
package backend

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/model"
)

// ErrNotFound signals a single-document lookup miss. Treated as recoverable
// by the router: the next source in the chain gets a chance.
var ErrNotFound = errors.New("not found")

type Client interface {
	Name() string

	CreateSurvey(ctx context.Context, s model.Survey) (id string, err error)
	GetAllSurveys(ctx context.Context) ([]model.Survey, error)
	GetActiveSurveys(ctx context.Context) ([]model.Survey, error)
	GetSurveyByID(ctx context.Context, id string) (model.Survey, error)
	UpdateSurvey(ctx context.Context, s model.Survey) error
	DeleteSurvey(ctx context.Context, id string) error

	SubmitResponse(ctx context.Context, r model.SurveyResponse) (id string, err error)
	GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error)
	HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error)
}

// FilterActive applies the active-flag plus date-interval check client-side,
// for sources that cannot push it down. Insertion order is preserved.
func FilterActive(surveys []model.Survey, now time.Time) []model.Survey {
	active := []model.Survey{}
	for _, s := range surveys {
		if s.ActiveAt(now) {
			active = append(active, s)
		}
	}
	return active
}
