// Package local wraps the localstore document emulation as a backend.Client,
// the last source in the router's fallback chain and the whole data layer in
// offline mode.
package local

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/localstore"
	"github.com/perkloop/surveydata/model"
)

const (
	collSurveys   = "surveys"
	collResponses = "responses"
)

type Client struct {
	store *localstore.Store
}

func New(store *localstore.Store) *Client {
	return &Client{store: store}
}

func (c *Client) Name() string {
	return "local"
}

func (c *Client) CreateSurvey(ctx context.Context, s model.Survey) (string, error) {
	fields, err := toFields(s)
	if err != nil {
		return "", err
	}
	delete(fields, "id")

	if s.ID != "" {
		err = c.store.Collection(collSurveys).Doc(s.ID).Set(fields)
		return s.ID, err
	}
	return c.store.Collection(collSurveys).Add(fields)
}

func (c *Client) GetAllSurveys(ctx context.Context) ([]model.Survey, error) {
	docs := c.store.Collection(collSurveys).Get()

	surveys := make([]model.Survey, 0, len(docs))
	for _, doc := range docs {
		s, err := surveyFromDoc(doc)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return surveys, nil
}

func (c *Client) GetActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	docs := c.store.Collection(collSurveys).Where("isActive", localstore.OpEq, true).Get()

	surveys := make([]model.Survey, 0, len(docs))
	for _, doc := range docs {
		s, err := surveyFromDoc(doc)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return backend.FilterActive(surveys, time.Now()), nil
}

func (c *Client) GetSurveyByID(ctx context.Context, id string) (model.Survey, error) {
	doc, exists := c.store.Collection(collSurveys).Doc(id).Get()
	if !exists {
		return model.Survey{}, backend.ErrNotFound
	}
	return surveyFromDoc(doc)
}

func (c *Client) UpdateSurvey(ctx context.Context, s model.Survey) error {
	fields, err := toFields(s)
	if err != nil {
		return err
	}
	delete(fields, "id")
	return c.store.Collection(collSurveys).Doc(s.ID).Set(fields)
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.store.Collection(collSurveys).Doc(id).Delete()
}

func (c *Client) SubmitResponse(ctx context.Context, r model.SurveyResponse) (string, error) {
	fields, err := toFields(r)
	if err != nil {
		return "", err
	}
	delete(fields, "id")
	return c.store.Collection(collResponses).Add(fields)
}

func (c *Client) GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error) {
	docs := c.store.Collection(collResponses).
		Where("surveyId", localstore.OpEq, surveyID).
		Get()

	responses := make([]model.SurveyResponse, 0, len(docs))
	for _, doc := range docs {
		r, err := responseFromDoc(doc)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, nil
}

func (c *Client) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error) {
	docs := c.store.Collection(collResponses).
		Where("surveyId", localstore.OpEq, surveyID).
		Where("userId", localstore.OpEq, userID).
		Get()
	return len(docs) > 0, nil
}

// toFields flattens a typed value into the generic field mapping the store
// works with, going through JSON so tags and answer shapes line up with
// every other backend.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "local.encode")
	}
	var fields map[string]any
	err = json.Unmarshal(raw, &fields)
	if err != nil {
		return nil, errors.Wrap(err, "local.decode")
	}
	return fields, nil
}

func surveyFromDoc(doc localstore.Document) (s model.Survey, err error) {
	err = fromDoc(doc, &s)
	s.ID = doc.ID
	return
}

func responseFromDoc(doc localstore.Document) (r model.SurveyResponse, err error) {
	err = fromDoc(doc, &r)
	r.ID = doc.ID
	return
}

func fromDoc(doc localstore.Document, out any) error {
	raw, err := json.Marshal(doc.Data())
	if err != nil {
		return errors.Wrap(err, "local.encode")
	}
	err = json.Unmarshal(raw, out)
	if err != nil {
		return errors.Wrap(err, "local.decode")
	}
	return nil
}
