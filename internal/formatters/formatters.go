package formatters

import (
	"encoding/json"
	"fmt"
	"sort"

	"resumectl/internal/session"
	"resumectl/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type names used as registry keys.
const (
	TypeAny            = "any"
	TypeResume         = "Resume"
	TypeResumeList     = "ResumeList"
	TypeAnalysisResult = "AnalysisResult"
	TypeSavedAnalysis  = "SavedAnalysis"
	TypeSavedList      = "SavedAnalysisList"
	TypeSessionState   = "SessionState"
	TypeUser           = "User"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeResume, &ResumeTextFormatter{})
	registry.RegisterFormatter("markdown", TypeResume, &ResumeMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeResumeList, &ResumeListTextFormatter{})
	registry.RegisterFormatter("markdown", TypeResumeList, &ResumeListMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeAnalysisResult, &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", TypeAnalysisResult, &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeSavedAnalysis, &SavedAnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", TypeSavedAnalysis, &SavedAnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeSavedList, &SavedListTextFormatter{})
	registry.RegisterFormatter("markdown", TypeSavedList, &SavedListMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeSessionState, &StateTextFormatter{})
	registry.RegisterFormatter("markdown", TypeSessionState, &StateMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeUser, &UserTextFormatter{})
	registry.RegisterFormatter("markdown", TypeUser, &UserTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = normalize(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// normalize dereferences the pointer forms the commands pass around.
func normalize(data any) any {
	switch v := data.(type) {
	case *types.Resume:
		if v != nil {
			return *v
		}
	case *types.AnalysisResult:
		if v != nil {
			return *v
		}
	case *types.SavedAnalysis:
		if v != nil {
			return *v
		}
	case *session.State:
		if v != nil {
			return *v
		}
	case *types.User:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Resume:
		return TypeResume
	case []types.Resume:
		return TypeResumeList
	case types.AnalysisResult:
		return TypeAnalysisResult
	case types.SavedAnalysis:
		return TypeSavedAnalysis
	case []types.SavedAnalysis:
		return TypeSavedList
	case session.State:
		return TypeSessionState
	case types.User:
		return TypeUser
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
