package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Validation lives above the data layer: the admin forms call these helpers
// before handing a survey to the service, the service itself does not.

func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.New("question prompt is empty")
	}

	switch q.Type {
	case TypeShortText, TypeLongText:
		return nil
	case TypeRating:
		if q.MaxRating < 3 || q.MaxRating > 10 {
			return errors.Errorf("rating scale %d out of range [3,10]", q.MaxRating)
		}
		return nil
	case TypeMultiSelect, TypeSingleSelect, TypeDropdownSelect:
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) != "" {
				return nil
			}
		}
		return errors.New("selection question has no non-blank options")
	default:
		return errors.Errorf("unknown question type %q", q.Type)
	}
}

func (s Survey) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("survey title is empty")
	}
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return errors.Wrapf(err, "question %d", i+1)
		}
	}
	return nil
}
