// Package sheets talks to the spreadsheet-backed survey API: a web-app
// endpoint that multiplexes operations over an action parameter and answers
// with a uniform JSON envelope.
package sheets

import (
	"context"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/httpx"
	"github.com/perkloop/surveydata/model"
)

type Client struct {
	base string
	http *httpx.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: baseURL,
		http: httpx.NewClient(timeout),
	}
}

func (c *Client) Name() string {
	return "sheets"
}

// envelope is the web app's uniform response shape. Code is a stable machine
// identifier for failures; Error is human-readable text.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) get(ctx context.Context, action string, params url.Values, out any) error {
	q := url.Values{"action": {action}}
	for k, vs := range params {
		q[k] = vs
	}

	var env envelope
	err := c.http.GetJSON(ctx, c.base+"?"+q.Encode(), &env)
	if err != nil {
		return errors.Wrapf(err, "sheets.%s", action)
	}
	return c.unwrap(action, env, out)
}

func (c *Client) post(ctx context.Context, action string, payload, out any) error {
	body := map[string]any{
		"action":  action,
		"payload": payload,
	}

	var env envelope
	err := c.http.PostJSON(ctx, c.base, body, &env)
	if err != nil {
		return errors.Wrapf(err, "sheets.%s", action)
	}
	return c.unwrap(action, env, out)
}

func (c *Client) unwrap(action string, env envelope, out any) error {
	if !env.Success {
		// older web-app deployments carry no code field and only report the
		// literal error text "not found"
		if env.Code == "not_found" || env.Error == "not found" {
			return backend.ErrNotFound
		}
		return errors.Errorf("sheets.%s: %s", action, env.Error)
	}
	if out == nil || env.Data == nil {
		return nil
	}

	err := json.Unmarshal(env.Data, out)
	if err != nil {
		return errors.Wrapf(err, "sheets.%s.decode", action)
	}
	return nil
}

func (c *Client) CreateSurvey(ctx context.Context, s model.Survey) (string, error) {
	var ref model.Ref
	err := c.post(ctx, "createSurvey", s, &ref)
	return ref.ID, err
}

func (c *Client) GetAllSurveys(ctx context.Context) ([]model.Survey, error) {
	var surveys []model.Survey
	err := c.get(ctx, "getAllSurveys", nil, &surveys)
	return surveys, err
}

// GetActiveSurveys filters client-side: the web app stores dates as sheet
// cells and its serialized forms vary, so the observable interval check is
// done here against the canonical model parsing.
func (c *Client) GetActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	surveys, err := c.GetAllSurveys(ctx)
	if err != nil {
		return nil, err
	}
	return backend.FilterActive(surveys, time.Now()), nil
}

func (c *Client) GetSurveyByID(ctx context.Context, id string) (model.Survey, error) {
	var s model.Survey
	err := c.get(ctx, "getSurveyById", url.Values{"id": {id}}, &s)
	if httpx.IsNotFound(err) {
		return model.Survey{}, backend.ErrNotFound
	}
	return s, err
}

func (c *Client) UpdateSurvey(ctx context.Context, s model.Survey) error {
	return c.post(ctx, "updateSurvey", s, nil)
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.post(ctx, "deleteSurvey", model.Ref{ID: id}, nil)
}

func (c *Client) SubmitResponse(ctx context.Context, r model.SurveyResponse) (string, error) {
	var ref model.Ref
	err := c.post(ctx, "submitResponse", r, &ref)
	return ref.ID, err
}

func (c *Client) GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error) {
	var responses []model.SurveyResponse
	err := c.get(ctx, "getSurveyResponses", url.Values{"surveyId": {surveyID}}, &responses)
	return responses, err
}

func (c *Client) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error) {
	var result struct {
		Completed bool `json:"completed"`
	}
	err := c.get(ctx, "hasUserCompletedSurvey", url.Values{
		"surveyId": {surveyID},
		"userId":   {userID},
	}, &result)
	return result.Completed, err
}
