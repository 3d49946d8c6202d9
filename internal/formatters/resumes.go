package formatters

import (
	"fmt"
	"strings"

	"resumectl/internal/types"
)

const timeLayout = "2006-01-02 15:04"

func uploadedAt(r types.Resume) string {
	if r.UploadedAt.IsZero() {
		return "-"
	}
	return r.UploadedAt.Format(timeLayout)
}

// ResumeTextFormatter prints one resume with its parsed text.
type ResumeTextFormatter struct{}

func (f *ResumeTextFormatter) Format(data any) (string, error) {
	resume, ok := data.(types.Resume)
	if !ok {
		return "", fmt.Errorf("expected Resume, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== RESUME ===\n")
	output.WriteString(fmt.Sprintf("ID:       %s\n", resume.ID))
	output.WriteString(fmt.Sprintf("File:     %s\n", resume.FileName))
	output.WriteString(fmt.Sprintf("Uploaded: %s\n", uploadedAt(resume)))
	if resume.ParsedText != "" {
		output.WriteString("\n=== PARSED TEXT ===\n")
		output.WriteString(resume.ParsedText)
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (f *ResumeTextFormatter) SupportedType() string { return TypeResume }

// ResumeMarkdownFormatter renders one resume as markdown.
type ResumeMarkdownFormatter struct{}

func (f *ResumeMarkdownFormatter) Format(data any) (string, error) {
	resume, ok := data.(types.Resume)
	if !ok {
		return "", fmt.Errorf("expected Resume, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# %s\n\n", resume.FileName))
	output.WriteString(fmt.Sprintf("- **ID:** `%s`\n", resume.ID))
	output.WriteString(fmt.Sprintf("- **Uploaded:** %s\n", uploadedAt(resume)))
	if resume.ParsedText != "" {
		output.WriteString("\n## Parsed Text\n\n```\n")
		output.WriteString(resume.ParsedText)
		output.WriteString("\n```\n")
	}
	return output.String(), nil
}

func (f *ResumeMarkdownFormatter) SupportedType() string { return TypeResume }

// ResumeListTextFormatter prints one line per resume.
type ResumeListTextFormatter struct{}

func (f *ResumeListTextFormatter) Format(data any) (string, error) {
	resumes, ok := data.([]types.Resume)
	if !ok {
		return "", fmt.Errorf("expected []Resume, got %T", data)
	}
	if len(resumes) == 0 {
		return "No resumes uploaded.\n", nil
	}

	var output strings.Builder
	for _, r := range resumes {
		output.WriteString(fmt.Sprintf("%s  %-16s  %s\n", r.ID, uploadedAt(r), r.FileName))
	}
	return output.String(), nil
}

func (f *ResumeListTextFormatter) SupportedType() string { return TypeResumeList }

// ResumeListMarkdownFormatter renders the resumes as a table.
type ResumeListMarkdownFormatter struct{}

func (f *ResumeListMarkdownFormatter) Format(data any) (string, error) {
	resumes, ok := data.([]types.Resume)
	if !ok {
		return "", fmt.Errorf("expected []Resume, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resumes\n\n")
	if len(resumes) == 0 {
		output.WriteString("No resumes uploaded.\n")
		return output.String(), nil
	}
	output.WriteString("| ID | File | Uploaded |\n|---|---|---|\n")
	for _, r := range resumes {
		output.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", r.ID, escapeCell(r.FileName), uploadedAt(r)))
	}
	return output.String(), nil
}

func (f *ResumeListMarkdownFormatter) SupportedType() string { return TypeResumeList }

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
