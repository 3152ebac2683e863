package mongodb

import "github.com/perkloop/surveydata/model"

// Stored documents keep the survey identifier in _id so lookups and replaces
// hit the primary index.

type surveyRecord struct {
	ID          string           `bson:"_id"`
	Title       string           `bson:"title"`
	Description string           `bson:"description"`
	Banner      string           `bson:"banner,omitempty"`
	IsActive    bool             `bson:"isActive"`
	StartDate   string           `bson:"startDate,omitempty"`
	EndDate     string           `bson:"endDate,omitempty"`
	Questions   []model.Question `bson:"questions"`
	CreatedAt   string           `bson:"createdAt,omitempty"`
	UpdatedAt   string           `bson:"updatedAt,omitempty"`
}

func surveyDoc(s model.Survey) surveyRecord {
	return surveyRecord{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Banner:      s.Banner,
		IsActive:    s.IsActive,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		Questions:   s.Questions,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r surveyRecord) model() model.Survey {
	return model.Survey{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Banner:      r.Banner,
		IsActive:    r.IsActive,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Questions:   r.Questions,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type responseRecord struct {
	ID          string         `bson:"_id"`
	SurveyID    string         `bson:"surveyId"`
	UserID      string         `bson:"userId"`
	Answers     map[string]any `bson:"answers"`
	SubmittedAt string         `bson:"submittedAt,omitempty"`
}

func responseDoc(r model.SurveyResponse) responseRecord {
	return responseRecord{
		ID:          r.ID,
		SurveyID:    r.SurveyID,
		UserID:      r.UserID,
		Answers:     r.Answers,
		SubmittedAt: r.SubmittedAt,
	}
}

func (r responseRecord) model() model.SurveyResponse {
	return model.SurveyResponse{
		ID:          r.ID,
		SurveyID:    r.SurveyID,
		UserID:      r.UserID,
		Answers:     r.Answers,
		SubmittedAt: r.SubmittedAt,
	}
}
