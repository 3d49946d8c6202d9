package formatters

import (
	"fmt"
	"sort"
	"strings"

	"resumectl/internal/types"
)

func writeTextList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(title + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString("### " + title + "\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeAnalysisText(output *strings.Builder, result types.AnalysisResult) {
	output.WriteString(fmt.Sprintf("Match Score: %d/100 (%s)\n\n", result.MatchScore, result.Band()))
	writeTextList(output, "Key Strengths", result.KeyStrengths)
	writeTextList(output, "Skills Gap", result.SkillsGap)
	writeTextList(output, "Suggestions For Improvement", result.SuggestionsForImprovement)
	if result.OverallAssessment != "" {
		output.WriteString("Overall Assessment:\n")
		output.WriteString(result.OverallAssessment)
		output.WriteString("\n\n")
	}
	if len(result.ExtraThingsToConsider) > 0 {
		output.WriteString("Extra Things To Consider:\n")
		for _, k := range sortedKeys(result.ExtraThingsToConsider) {
			output.WriteString(fmt.Sprintf("- %s: %s\n", k, result.ExtraThingsToConsider[k]))
		}
		output.WriteString("\n")
	}
}

func writeAnalysisMarkdown(output *strings.Builder, result types.AnalysisResult) {
	output.WriteString(fmt.Sprintf("**Match Score:** %d/100 (%s)\n\n", result.MatchScore, result.Band()))
	writeMarkdownList(output, "Key Strengths", result.KeyStrengths)
	writeMarkdownList(output, "Skills Gap", result.SkillsGap)
	writeMarkdownList(output, "Suggestions For Improvement", result.SuggestionsForImprovement)
	if result.OverallAssessment != "" {
		output.WriteString("### Overall Assessment\n")
		output.WriteString(result.OverallAssessment)
		output.WriteString("\n\n")
	}
	if len(result.ExtraThingsToConsider) > 0 {
		output.WriteString("### Extra Things To Consider\n")
		for _, k := range sortedKeys(result.ExtraThingsToConsider) {
			output.WriteString(fmt.Sprintf("- **%s:** %s\n", k, result.ExtraThingsToConsider[k]))
		}
		output.WriteString("\n")
	}
}

// AnalysisTextFormatter handles text formatting for analysis results
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== RESUME ANALYSIS ===\n\n")
	writeAnalysisText(&output, result)
	return output.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string { return TypeAnalysisResult }

// AnalysisMarkdownFormatter handles markdown formatting for analysis results
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resume Analysis\n\n")
	writeAnalysisMarkdown(&output, result)
	return output.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string { return TypeAnalysisResult }

// SavedAnalysisTextFormatter prints a saved analysis with its job description.
type SavedAnalysisTextFormatter struct{}

func (f *SavedAnalysisTextFormatter) Format(data any) (string, error) {
	saved, ok := data.(types.SavedAnalysis)
	if !ok {
		return "", fmt.Errorf("expected SavedAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SAVED ANALYSIS ===\n")
	output.WriteString(fmt.Sprintf("ID:     %s\n", saved.ID))
	output.WriteString(fmt.Sprintf("Resume: %s\n\n", saved.ResumeID))
	output.WriteString("Job Description:\n")
	output.WriteString(saved.JobDescription)
	output.WriteString("\n\n")
	writeAnalysisText(&output, saved.AISummary)
	return output.String(), nil
}

func (f *SavedAnalysisTextFormatter) SupportedType() string { return TypeSavedAnalysis }

// SavedAnalysisMarkdownFormatter renders a saved analysis as markdown.
type SavedAnalysisMarkdownFormatter struct{}

func (f *SavedAnalysisMarkdownFormatter) Format(data any) (string, error) {
	saved, ok := data.(types.SavedAnalysis)
	if !ok {
		return "", fmt.Errorf("expected SavedAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Saved Analysis\n\n")
	output.WriteString(fmt.Sprintf("- **ID:** `%s`\n- **Resume:** `%s`\n\n", saved.ID, saved.ResumeID))
	output.WriteString("## Job Description\n\n")
	output.WriteString(saved.JobDescription)
	output.WriteString("\n\n## Result\n\n")
	writeAnalysisMarkdown(&output, saved.AISummary)
	return output.String(), nil
}

func (f *SavedAnalysisMarkdownFormatter) SupportedType() string { return TypeSavedAnalysis }

// SavedListTextFormatter prints one line per saved analysis.
type SavedListTextFormatter struct{}

func (f *SavedListTextFormatter) Format(data any) (string, error) {
	list, ok := data.([]types.SavedAnalysis)
	if !ok {
		return "", fmt.Errorf("expected []SavedAnalysis, got %T", data)
	}
	if len(list) == 0 {
		return "No saved analyses.\n", nil
	}

	var output strings.Builder
	for _, saved := range list {
		output.WriteString(fmt.Sprintf("%s  %3d  %-4s  %s\n",
			saved.ID, saved.AISummary.MatchScore, saved.AISummary.Band(), Excerpt(saved.JobDescription, 60)))
	}
	return output.String(), nil
}

func (f *SavedListTextFormatter) SupportedType() string { return TypeSavedList }

// SavedListMarkdownFormatter renders saved analyses as a table.
type SavedListMarkdownFormatter struct{}

func (f *SavedListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.([]types.SavedAnalysis)
	if !ok {
		return "", fmt.Errorf("expected []SavedAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Saved Analyses\n\n")
	if len(list) == 0 {
		output.WriteString("No saved analyses.\n")
		return output.String(), nil
	}
	output.WriteString("| ID | Score | Band | Job Description |\n|---|---|---|---|\n")
	for _, saved := range list {
		output.WriteString(fmt.Sprintf("| `%s` | %d | %s | %s |\n",
			saved.ID, saved.AISummary.MatchScore, saved.AISummary.Band(), escapeCell(Excerpt(saved.JobDescription, 80))))
	}
	return output.String(), nil
}

func (f *SavedListMarkdownFormatter) SupportedType() string { return TypeSavedList }

// Excerpt returns the first line of s, cut to at most n runes.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
