package model

import "time"

// Question types accepted by the survey builder.
const (
	TypeShortText      = "short-text"
	TypeLongText       = "long-text"
	TypeMultiSelect    = "multi-select"
	TypeSingleSelect   = "single-select"
	TypeDropdownSelect = "dropdown-select"
	TypeRating         = "rating"
)

type Survey struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Banner      string     `json:"banner,omitempty"`
	IsActive    bool       `json:"isActive"`
	StartDate   string     `json:"startDate,omitempty"`
	EndDate     string     `json:"endDate,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   string     `json:"createdAt,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
}

type Question struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	MaxRating   int      `json:"maxRating,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// SurveyResponse answers are keyed by question ID. A value is a string, a
// []string for multi-select, or a number for rating questions.
type SurveyResponse struct {
	ID          string         `json:"id,omitempty"`
	SurveyID    string         `json:"surveyId"`
	UserID      string         `json:"userId"`
	Answers     map[string]any `json:"answers"`
	SubmittedAt string         `json:"submittedAt,omitempty"`
}

// Ref is the minimal handle returned by mutations.
type Ref struct {
	ID string `json:"id"`
}

// Timestamp formats a time the way every backend stores it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDate accepts the RFC3339 timestamps written by this layer as well as
// the date-only values the admin dashboard submits for start/end dates.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ActiveAt reports whether the survey should be shown at the given instant:
// the active flag is set and now falls inside [StartDate, EndDate]. A missing
// or unparsable bound does not constrain that side of the interval.
func (s Survey) ActiveAt(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if start, ok := ParseDate(s.StartDate); ok && now.Before(start) {
		return false
	}
	if end, ok := ParseDate(s.EndDate); ok {
		// a date-only end bound means "through the end of that day"
		if len(s.EndDate) == len("2006-01-02") {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		if now.After(end) {
			return false
		}
	}
	return true
}
