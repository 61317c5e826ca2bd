package activity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ewhitaker/rallyup/internal/model"
)

// ValidateSchema checks that an activity's requirement fields are well formed
// before the activity is saved: unique non-empty names, known kinds, and
// number bounds that make sense.
func ValidateSchema(fields []model.RequirementField) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case model.FieldPhotoURL, model.FieldText:
			if f.Min != nil || f.Max != nil {
				return fmt.Errorf("field %q: bounds only apply to number fields", f.Name)
			}
		case model.FieldNumber:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("field %q: min %v exceeds max %v", f.Name, *f.Min, *f.Max)
			}
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
	}
	return nil
}

// ValidateResponses checks a submission's responses against the activity's
// requirement schema. Required fields must be present; each present value must
// match its field's kind. Responses for fields not in the schema are rejected.
func ValidateResponses(fields []model.RequirementField, responses map[string]any) error {
	byName := make(map[string]model.RequirementField, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	for name := range responses {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("response %q: no such field", name)
		}
	}

	for _, f := range fields {
		value, present := responses[f.Name]
		if !present {
			if f.Required {
				return fmt.Errorf("field %q: required", f.Name)
			}
			continue
		}
		if err := validateValue(f, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(f model.RequirementField, value any) error {
	switch f.Kind {
	case model.FieldPhotoURL:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected a URL string", f.Name)
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("field %q: invalid URL", f.Name)
		}
	case model.FieldNumber:
		// JSON numbers decode as float64.
		n, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %q: expected a number", f.Name)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Errorf("field %q: %v is below minimum %v", f.Name, n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Errorf("field %q: %v is above maximum %v", f.Name, n, *f.Max)
		}
	case model.FieldText:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected text", f.Name)
		}
		if f.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("field %q: required", f.Name)
		}
	}
	return nil
}
