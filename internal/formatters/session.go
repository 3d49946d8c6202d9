package formatters

import (
	"fmt"
	"strings"

	"resumectl/internal/session"
	"resumectl/internal/types"
)

// StateTextFormatter prints a session snapshot for the interactive shell.
type StateTextFormatter struct{}

func (f *StateTextFormatter) Format(data any) (string, error) {
	state, ok := data.(session.State)
	if !ok {
		return "", fmt.Errorf("expected session State, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Phase: %s\n", state.Phase))
	if state.SelectedResume != nil {
		output.WriteString(fmt.Sprintf("Resume: %s (%s)\n", state.SelectedResume.FileName, state.SelectedResume.ID))
	} else {
		output.WriteString("Resume: none\n")
	}
	if state.JobDescription != "" {
		output.WriteString(fmt.Sprintf("Job description: %s\n", Excerpt(state.JobDescription, 70)))
	}
	if state.SelectedSavedAnalysis != nil {
		line := fmt.Sprintf("Saved analysis: %s", state.SelectedSavedAnalysis.ID)
		if state.DraftDiverged {
			line += " (job description edited since load)"
		}
		output.WriteString(line + "\n")
	}
	if state.Dirty {
		output.WriteString("Unsaved result: yes\n")
	}
	if state.Analyzing {
		output.WriteString("Analyzing...\n")
	}
	if state.CurrentResult != nil {
		output.WriteString("\n")
		writeAnalysisText(&output, *state.CurrentResult)
	}
	if state.SelectedResume != nil {
		output.WriteString(fmt.Sprintf("Saved analyses for this resume: %d\n", len(state.SavedAnalyses)))
	}
	return output.String(), nil
}

func (f *StateTextFormatter) SupportedType() string { return TypeSessionState }

// StateMarkdownFormatter renders a session snapshot as markdown.
type StateMarkdownFormatter struct{}

func (f *StateMarkdownFormatter) Format(data any) (string, error) {
	state, ok := data.(session.State)
	if !ok {
		return "", fmt.Errorf("expected session State, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Analysis Session\n\n")
	output.WriteString(fmt.Sprintf("- **Phase:** %s\n", state.Phase))
	if state.SelectedResume != nil {
		output.WriteString(fmt.Sprintf("- **Resume:** %s\n", state.SelectedResume.FileName))
	}
	output.WriteString(fmt.Sprintf("- **Unsaved:** %t\n\n", state.Dirty))

	if state.JobDescription != "" {
		output.WriteString("## Job Description\n\n")
		output.WriteString(state.JobDescription)
		output.WriteString("\n\n")
	}
	if state.CurrentResult != nil {
		output.WriteString("## Result\n\n")
		writeAnalysisMarkdown(&output, *state.CurrentResult)
	}
	if len(state.SavedAnalyses) > 0 {
		list, err := (&SavedListMarkdownFormatter{}).Format(state.SavedAnalyses)
		if err != nil {
			return "", err
		}
		output.WriteString("#" + list)
	}
	return output.String(), nil
}

func (f *StateMarkdownFormatter) SupportedType() string { return TypeSessionState }

// UserTextFormatter prints the account profile.
type UserTextFormatter struct{}

func (f *UserTextFormatter) Format(data any) (string, error) {
	user, ok := data.(types.User)
	if !ok {
		return "", fmt.Errorf("expected User, got %T", data)
	}
	return fmt.Sprintf("Name:  %s\nEmail: %s\n", user.Name, user.Email), nil
}

func (f *UserTextFormatter) SupportedType() string { return TypeUser }
