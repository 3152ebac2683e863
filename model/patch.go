package model

// SurveyPatch is a shallow partial update of a Survey. Nil fields are left
// alone. The ID field is accepted for wire compatibility but never applied:
// a survey's identifier is immutable once assigned.
type SurveyPatch struct {
	ID          string      `json:"id,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Banner      *string     `json:"banner,omitempty"`
	IsActive    *bool       `json:"isActive,omitempty"`
	StartDate   *string     `json:"startDate,omitempty"`
	EndDate     *string     `json:"endDate,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
}

// Apply merges the patch over the survey, ignoring any identifier carried by
// the patch payload.
func (p SurveyPatch) Apply(s *Survey) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Banner != nil {
		s.Banner = *p.Banner
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.StartDate != nil {
		s.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		s.EndDate = *p.EndDate
	}
	if p.Questions != nil {
		s.Questions = *p.Questions
	}
}
