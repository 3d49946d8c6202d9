package cli

import (
	"context"
	"fmt"

	"resumectl/internal/common"
	"resumectl/internal/errors"
	"resumectl/internal/session"
	"resumectl/internal/types"

	"github.com/spf13/cobra"
)

// maxJobDescriptionChars keeps drafts within what the analyzer accepts
const maxJobDescriptionChars = 20000

var analyzeFlags struct {
	resumeID string
	job      string
	save     bool
	output   common.CommandConfig
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a resume against a job description",
	Long: `Run an analysis of one of your resumes against a job description and print
the match score, strengths, skills gap and suggestions.

The job description is passed with --job as text, as @file to read a file,
or as @- to read stdin. Use --save to keep the result as a saved analysis.`,
	Example: `  resumectl analyze --resume 42 --job @posting.txt
  pbpaste | resumectl analyze --resume 42 --job @- --save --format markdown`,
	Args: cobra.NoArgs,
	RunE: withEnv(runAnalyze),
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFlags.resumeID, "resume", "r", "", "Resume ID (see 'resumectl resumes list')")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.job, "job", "j", "", "Job description text, @file, or @- for stdin")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.save, "save", false, "Save the analysis after it completes")
	_ = analyzeCmd.MarkFlagRequired("resume")
	_ = analyzeCmd.MarkFlagRequired("job")
	addOutputFlags(analyzeCmd, &analyzeFlags.output)
}

func runAnalyze(cmd *cobra.Command, args []string, e *env) error {
	fp := common.NewFileProcessor(e.logger)
	jobDescription, err := fp.ReadJobDescription(analyzeFlags.job, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := common.ValidateJobDescription(jobDescription, maxJobDescriptionChars); err != nil {
		return err
	}

	ctrl := e.newController()
	defer ctrl.Close()

	e.logger.Info("Starting resume analysis",
		"resume_id", analyzeFlags.resumeID,
		"job_chars", len(jobDescription),
		"save", analyzeFlags.save)

	if analyzeFlags.save {
		return run(cmd, e, analyzeFlags.output, "analyze", func(ctx context.Context) (*types.SavedAnalysis, error) {
			if _, err := analyzeWith(ctx, ctrl, analyzeFlags.resumeID, jobDescription); err != nil {
				return nil, err
			}
			return ctrl.Save(ctx)
		})
	}
	return run(cmd, e, analyzeFlags.output, "analyze", func(ctx context.Context) (*types.AnalysisResult, error) {
		return analyzeWith(ctx, ctrl, analyzeFlags.resumeID, jobDescription)
	})
}

// analyzeWith drives a controller through select, draft and analyze
func analyzeWith(ctx context.Context, ctrl *session.Controller, resumeID, jobDescription string) (*types.AnalysisResult, error) {
	resumes, err := ctrl.LoadResumes(ctx)
	if err != nil {
		return nil, err
	}
	resume := findResume(resumes, resumeID)
	if resume == nil {
		return nil, errors.NewValidationError(errors.ErrCodeNotFound,
			fmt.Sprintf("resume %s not found", resumeID), nil)
	}

	// The saved list is not needed for a one-shot analysis.
	ctrl.SelectResume(resume)
	ctrl.EditJobDescription(jobDescription)

	result, err := ctrl.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description cannot be empty", nil)
	}
	return result, nil
}

func findResume(resumes []types.Resume, id string) *types.Resume {
	for i := range resumes {
		if resumes[i].ID == id {
			return &resumes[i]
		}
	}
	return nil
}
