package cli

import (
	"context"
	"fmt"

	"resumectl/internal/common"
	"resumectl/internal/export"
	"resumectl/internal/types"

	"github.com/spf13/cobra"
)

var analysesCmd = &cobra.Command{
	Use:     "analyses",
	Aliases: []string{"analysis"},
	Short:   "Browse, delete and export saved analyses",
}

var analysesListFlags struct {
	resumeID string
	output   common.CommandConfig
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the saved analyses of a resume",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return run(cmd, e, analysesListFlags.output, "analyses_list", func(ctx context.Context) ([]types.SavedAnalysis, error) {
			return e.client.ListAnalyses(ctx, analysesListFlags.resumeID)
		})
	}),
}

var analysesShowOutput common.CommandConfig

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show one saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return run(cmd, e, analysesShowOutput, "analyses_show", func(ctx context.Context) (*types.SavedAnalysis, error) {
			return e.client.GetAnalysis(ctx, args[0])
		})
	}),
}

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.client.DeleteAnalysis(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s\n", args[0])
		return nil
	}),
}

var analysesExportFlags struct {
	resumeIDs   []string
	output      string
	format      string
	concurrency int
}

var analysesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved analyses to a spreadsheet or JSON",
	Long: `Export saved analyses with their score bands, best match first. Without
--resume every resume is included. The format follows the output file
extension unless --format is given; JSON goes to stdout when no file is set.`,
	Example: `  resumectl analyses export -o analyses.xlsx
  resumectl analyses export --resume 42 --format json`,
	Args: cobra.NoArgs,
	RunE: withEnv(runExport),
}

func init() {
	analysesListCmd.Flags().StringVarP(&analysesListFlags.resumeID, "resume", "r", "", "Resume ID")
	_ = analysesListCmd.MarkFlagRequired("resume")
	addOutputFlags(analysesListCmd, &analysesListFlags.output)

	addOutputFlags(analysesShowCmd, &analysesShowOutput)

	analysesExportCmd.Flags().StringSliceVarP(&analysesExportFlags.resumeIDs, "resume", "r", nil, "Resume IDs to export (default: all)")
	analysesExportCmd.Flags().StringVarP(&analysesExportFlags.output, "output", "o", "", "Output file (.xlsx or .json)")
	analysesExportCmd.Flags().StringVar(&analysesExportFlags.format, "format", "", "Export format: xlsx or json")
	analysesExportCmd.Flags().IntVar(&analysesExportFlags.concurrency, "concurrency", export.DefaultConcurrency, "Parallel list requests")

	analysesCmd.AddCommand(analysesListCmd, analysesShowCmd, analysesDeleteCmd, analysesExportCmd)
}

func runExport(cmd *cobra.Command, args []string, e *env) error {
	format := exportFormat(analysesExportFlags.format, analysesExportFlags.output)
	if format == export.FormatXLSX && analysesExportFlags.output == "" {
		return fmt.Errorf("xlsx export needs an output file, use -o analyses.xlsx")
	}
	if err := common.NewFileProcessor(e.logger).ValidateOutputFile(analysesExportFlags.output); err != nil {
		return err
	}

	rows, err := export.Collect(cmd.Context(), e.client, analysesExportFlags.resumeIDs, analysesExportFlags.concurrency)
	if err != nil {
		return err
	}
	export.SortByScore(rows)

	if analysesExportFlags.output == "" {
		return export.Write(cmd.OutOrStdout(), format, rows)
	}
	if err := export.WriteFile(analysesExportFlags.output, format, rows); err != nil {
		return err
	}
	e.logger.Info("Analyses exported", "file", analysesExportFlags.output, "format", format, "rows", len(rows))
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d analyses to %s\n", len(rows), analysesExportFlags.output)
	return nil
}

// exportFormat honors an explicit format, then the file extension, then JSON
// for stdout.
func exportFormat(format, output string) string {
	switch {
	case format != "":
		return format
	case output != "":
		return export.FormatFromPath(output)
	default:
		return export.FormatJSON
	}
}
