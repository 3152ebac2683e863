package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/model"
)

type Client struct {
	db *sql.DB
}

func Open(path string) (*Client, error) {
	db, err := open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.open")
	}
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Name() string {
	return "sqlite"
}

func (c *Client) CreateSurvey(ctx context.Context, s model.Survey) (string, error) {
	if s.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return "", errors.Wrap(err, "sqlite.new_id")
		}
		s.ID = id.String()
	}

	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return "", errors.Wrap(err, "sqlite.insert_survey.encode_questions")
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO survey (id, title, description, banner, is_active, start_date, end_date, questions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Description, s.Banner, s.IsActive, s.StartDate, s.EndDate, string(questions), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return "", errors.Wrap(err, "sqlite.insert_survey")
	}
	return s.ID, nil
}

const surveyColumns = `id, title, description, banner, is_active, start_date, end_date, questions, created_at, updated_at`

func (c *Client) GetAllSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+surveyColumns+` FROM survey`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.get_surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite.get_surveys.rows")
	}
	return surveys, nil
}

// GetActiveSurveys pushes the flag down to SQL; the date-interval check runs
// client-side so mixed date formats behave like every other backend.
func (c *Client) GetActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+surveyColumns+` FROM survey WHERE is_active = 1`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.get_active_surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite.get_active_surveys.rows")
	}
	return backend.FilterActive(surveys, time.Now()), nil
}

func (c *Client) GetSurveyByID(ctx context.Context, id string) (model.Survey, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM survey WHERE id = ?`, id)

	s, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Survey{}, backend.ErrNotFound
	}
	return s, err
}

func (c *Client) UpdateSurvey(ctx context.Context, s model.Survey) error {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return errors.Wrap(err, "sqlite.update_survey.encode_questions")
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO survey (id, title, description, banner, is_active, start_date, end_date, questions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			banner = excluded.banner,
			is_active = excluded.is_active,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			questions = excluded.questions,
			updated_at = excluded.updated_at`,
		s.ID, s.Title, s.Description, s.Banner, s.IsActive, s.StartDate, s.EndDate, string(questions), s.CreatedAt, s.UpdatedAt,
	)
	return errors.Wrap(err, "sqlite.update_survey")
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	return errors.Wrap(err, "sqlite.delete_survey")
}

func (c *Client) SubmitResponse(ctx context.Context, r model.SurveyResponse) (string, error) {
	if r.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return "", errors.Wrap(err, "sqlite.new_id")
		}
		r.ID = id.String()
	}

	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return "", errors.Wrap(err, "sqlite.insert_response.encode_answers")
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO response (id, survey_id, user_id, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.SurveyID, r.UserID, string(answers), r.SubmittedAt,
	)
	if err != nil {
		return "", errors.Wrap(err, "sqlite.insert_response")
	}
	return r.ID, nil
}

func (c *Client) GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, survey_id, user_id, answers, submitted_at
		FROM response
		WHERE survey_id = ?`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.get_responses")
	}
	defer rows.Close()

	responses := []model.SurveyResponse{}
	for rows.Next() {
		r := model.SurveyResponse{}
		var answers string
		err = rows.Scan(&r.ID, &r.SurveyID, &r.UserID, &answers, &r.SubmittedAt)
		if err != nil {
			return nil, errors.Wrap(err, "sqlite.get_responses.scan")
		}
		err = json.Unmarshal([]byte(answers), &r.Answers)
		if err != nil {
			return nil, errors.Wrap(err, "sqlite.get_responses.decode_answers")
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite.get_responses.rows")
	}
	return responses, nil
}

func (c *Client) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `
		SELECT 1 FROM response
		WHERE survey_id = ?
			AND user_id = ?
		LIMIT 1`,
		surveyID,
		userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "sqlite.completion_check")
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row scanner) (model.Survey, error) {
	s := model.Survey{}
	var questions string
	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Banner, &s.IsActive,
		&s.StartDate, &s.EndDate, &questions, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, errors.Wrap(err, "sqlite.scan_survey")
	}

	err = json.Unmarshal([]byte(questions), &s.Questions)
	if err != nil {
		return s, errors.Wrap(err, "sqlite.scan_survey.decode_questions")
	}
	return s, nil
}
