package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"resumectl/internal/common"
	"resumectl/internal/types"

	"github.com/spf13/cobra"
)

var resumesCmd = &cobra.Command{
	Use:     "resumes",
	Aliases: []string{"resume"},
	Short:   "List, upload and delete resumes",
}

var resumesListOutput common.CommandConfig

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your uploaded resumes",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return run(cmd, e, resumesListOutput, "resumes_list", e.client.ListResumes)
	}),
}

var resumesShowOutput common.CommandConfig

var resumesShowCmd = &cobra.Command{
	Use:   "show <resume-id>",
	Short: "Show a resume and its parsed text",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return run(cmd, e, resumesShowOutput, "resumes_show", func(ctx context.Context) (*types.Resume, error) {
			return e.client.GetResume(ctx, args[0])
		})
	}),
}

var resumesUploadOutput common.CommandConfig

var resumesUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF resume",
	Long: `Upload a PDF resume. The file is checked locally first: it must be a PDF
no larger than app.maxFileSize with extractable text.`,
	Args: cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		fp := common.NewFileProcessor(e.logger)
		return run(cmd, e, resumesUploadOutput, "resumes_upload", func(ctx context.Context) (*types.Resume, error) {
			data, _, err := fp.ReadResumePDF(args[0], e.cfg.App.MaxFileSize)
			if err != nil {
				return nil, err
			}
			return e.client.UploadResume(ctx, filepath.Base(args[0]), data)
		})
	}),
}

var resumesDeleteCmd = &cobra.Command{
	Use:   "delete <resume-id>",
	Short: "Delete a resume",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.client.DeleteResume(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted resume %s\n", args[0])
		return nil
	}),
}

var resumesPDFOutput string

var resumesPDFCmd = &cobra.Command{
	Use:   "pdf <resume-id>",
	Short: "Download the original PDF",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		fp := common.NewFileProcessor(e.logger)
		if err := fp.ValidateOutputFile(resumesPDFOutput); err != nil {
			return err
		}

		data, err := e.client.ResumePDF(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if resumesPDFOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := fp.WriteFile(resumesPDFOutput, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", resumesPDFOutput)
		return nil
	}),
}

func init() {
	addOutputFlags(resumesListCmd, &resumesListOutput)
	addOutputFlags(resumesShowCmd, &resumesShowOutput)
	addOutputFlags(resumesUploadCmd, &resumesUploadOutput)
	resumesPDFCmd.Flags().StringVarP(&resumesPDFOutput, "output", "o", "", "Output file path (default: stdout)")

	resumesCmd.AddCommand(resumesListCmd, resumesShowCmd, resumesUploadCmd, resumesDeleteCmd, resumesPDFCmd)
}
