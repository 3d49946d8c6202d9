package client

import (
	"fmt"
	"strings"
	"sync"

	"resumectl/internal/errors"

	"github.com/xeipuuv/gojsonschema"
)

// analysisResultSchema describes the analyzer response. Lists may be null
// when the model omits them; the score must stay within 0-100.
const analysisResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["MatchScore"],
  "properties": {
    "MatchScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "KeyStrengths": {"type": ["array", "null"], "items": {"type": "string"}},
    "SkillsGap": {"type": ["array", "null"], "items": {"type": "string"}},
    "SuggestionsForImprovement": {"type": ["array", "null"], "items": {"type": "string"}},
    "OverallAssessment": {"type": ["string", "null"]},
    "extraThingsToConsider": {"type": ["object", "null"], "additionalProperties": {"type": "string"}}
  }
}`

type resultSchema struct {
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

func newResultSchema() *resultSchema {
	return &resultSchema{}
}

func (s *resultSchema) load() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisResultSchema))
	})
	return s.schema, s.err
}

// validate checks body against the analysis result schema. A nil receiver accepts everything.
func (s *resultSchema) validate(body []byte) error {
	if s == nil {
		return nil
	}
	schema, err := s.load()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidResponse, "analysis result schema failed to load", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewAPIError(errors.ErrCodeInvalidResponse, "analysis response is not valid JSON", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return errors.NewAPIError(errors.ErrCodeInvalidResponse, "analysis response failed validation", nil).
		WithContext("problems", strings.Join(problems, "; "))
}
