package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"resumectl/internal/common"
	"resumectl/internal/errors"
	"resumectl/internal/formatters"
	"resumectl/internal/session"
	"resumectl/internal/types"

	"github.com/spf13/cobra"
)

var sessionFormat string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Work through resumes and analyses interactively",
	Long: `Start an interactive analysis session: pick a resume, draft a job
description, run the analysis and save or revisit results. Type "help" at the
prompt for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: withEnv(runSession),
}

func init() {
	sessionCmd.Flags().StringVar(&sessionFormat, "format", "", "Output format: json, text, or markdown")
}

func runSession(cmd *cobra.Command, args []string, e *env) error {
	cc, err := outputConfig(cmd, common.CommandConfig{OutputFormat: sessionFormat})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	watcher := e.startTokenWatcher(ctx)
	defer stopTokenWatcher(watcher, e.logger)

	ctrl := e.newController()
	defer ctrl.Close()

	sh := newShell(ctrl, cmd.InOrStdin(), cmd.OutOrStdout(), cc.OutputFormat, e.logger)
	sh.maxFileSize = e.cfg.App.MaxFileSize
	return sh.run(ctx)
}

// shell is a line-oriented front end over a session controller
type shell struct {
	ctrl        *session.Controller
	in          *bufio.Scanner
	out         io.Writer
	format      string
	files       *common.FileProcessor
	maxFileSize int64
	logger      *errors.Logger
	prompt      string
}

type shellCommand struct {
	usage string
	help  string
	run   func(sh *shell, ctx context.Context, arg string) error
}

var shellCommands map[string]shellCommand

// shellOrder is the order commands are listed by "help".
var shellOrder = []string{
	"resumes", "upload", "select", "none", "jd", "analyze", "save",
	"analyses", "view", "leave", "refresh", "delete-analysis", "delete-resume",
	"state", "help", "quit",
}

func init() {
	shellCommands = map[string]shellCommand{
		"resumes":         {"resumes", "Reload and list your resumes", (*shell).cmdResumes},
		"upload":          {"upload <file.pdf>", "Upload a PDF resume", (*shell).cmdUpload},
		"select":          {"select <n|id>", "Select a resume and load its saved analyses", (*shell).cmdSelect},
		"none":            {"none", "Clear the resume selection", (*shell).cmdNone},
		"jd":              {"jd <text|@file>", "Replace the job description draft", (*shell).cmdJobDescription},
		"analyze":         {"analyze", "Analyze the selected resume against the draft", (*shell).cmdAnalyze},
		"save":            {"save", "Save the current result", (*shell).cmdSave},
		"analyses":        {"analyses", "List saved analyses of the selected resume", (*shell).cmdAnalyses},
		"view":            {"view <n|id>", "Load a saved analysis", (*shell).cmdView},
		"leave":           {"leave", "Stop viewing and clear the working state", (*shell).cmdLeave},
		"refresh":         {"refresh", "Re-fetch saved analyses", (*shell).cmdRefresh},
		"delete-analysis": {"delete-analysis <n|id>", "Delete a saved analysis", (*shell).cmdDeleteAnalysis},
		"delete-resume":   {"delete-resume <n|id>", "Delete a resume", (*shell).cmdDeleteResume},
		"state":           {"state", "Show the session state", (*shell).cmdState},
		"help":            {"help", "Show this list", (*shell).cmdHelp},
		"quit":            {"quit", "Leave the session", nil},
	}
}

// maxShellLine fits a job description at its character cap in 4-byte runes.
const maxShellLine = 256 << 10

func newShell(ctrl *session.Controller, in io.Reader, out io.Writer, format string, logger *errors.Logger) *shell {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxShellLine)
	return &shell{
		ctrl:   ctrl,
		in:     scanner,
		out:    out,
		format: format,
		files:  common.NewFileProcessor(logger),
		logger: logger,
		prompt: "resumectl> ",
	}
}

// run reads commands until quit, EOF, or ctx is cancelled. Command errors are
// printed and the loop continues.
func (sh *shell) run(ctx context.Context) error {
	if resumes, err := sh.ctrl.LoadResumes(ctx); err != nil {
		sh.printError(err)
	} else {
		sh.print(resumes)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(sh.out, sh.prompt)
		if !sh.in.Scan() {
			fmt.Fprintln(sh.out)
			return sh.in.Err()
		}

		name, arg := splitCommand(sh.in.Text())
		if name == "" {
			continue
		}
		if name == "quit" || name == "exit" {
			return nil
		}

		command, ok := shellCommands[name]
		if !ok {
			fmt.Fprintf(sh.out, "unknown command %q, type \"help\"\n", name)
			continue
		}
		if err := command.run(sh, ctx, arg); err != nil {
			sh.printError(err)
		}
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (sh *shell) print(data any) {
	output, err := formatters.GlobalRegistry.Format(data, sh.format)
	if err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprint(sh.out, output)
	if !strings.HasSuffix(output, "\n") {
		fmt.Fprintln(sh.out)
	}
}

func (sh *shell) printError(err error) {
	fmt.Fprintf(sh.out, "error: %s\n", errors.Message(err))
}

func (sh *shell) cmdResumes(ctx context.Context, _ string) error {
	resumes, err := sh.ctrl.LoadResumes(ctx)
	if err != nil {
		return err
	}
	sh.print(resumes)
	return nil
}

func (sh *shell) cmdUpload(ctx context.Context, arg string) error {
	if arg == "" {
		return usageError("upload")
	}
	data, _, err := sh.files.ReadResumePDF(arg, sh.maxFileSize)
	if err != nil {
		return err
	}
	resume, err := sh.ctrl.UploadResume(ctx, filepath.Base(arg), data)
	if err != nil {
		return err
	}
	sh.print(resume)
	return nil
}

func (sh *shell) cmdSelect(ctx context.Context, arg string) error {
	if arg == "" {
		return usageError("select")
	}
	resume, err := pick(sh.ctrl.State().Resumes, arg, func(r types.Resume) string { return r.ID })
	if err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "Selected %s\n", resume.FileName)
	if err := sh.ctrl.SelectResume(resume).Wait(ctx); err != nil && !session.IsStale(err) {
		return err
	}
	sh.print(sh.ctrl.State().SavedAnalyses)
	return nil
}

func (sh *shell) cmdNone(ctx context.Context, _ string) error {
	return sh.ctrl.SelectResume(nil).Wait(ctx)
}

func (sh *shell) cmdJobDescription(_ context.Context, arg string) error {
	if arg == "" {
		return usageError("jd")
	}
	if arg == "@-" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "stdin is the session prompt, use @file instead", nil)
	}
	text, err := sh.files.ReadJobDescription(arg, nil)
	if err != nil {
		return err
	}
	if err := common.ValidateJobDescription(text, maxJobDescriptionChars); err != nil {
		return err
	}
	sh.ctrl.EditJobDescription(text)
	fmt.Fprintf(sh.out, "Job description set (%d characters)\n", utf8.RuneCountInString(text))
	return nil
}

func (sh *shell) cmdAnalyze(ctx context.Context, _ string) error {
	if !sh.ctrl.CanAnalyze() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"select a resume and set a job description first", nil)
	}
	fmt.Fprintln(sh.out, "Analyzing...")
	result, err := sh.ctrl.Analyze(ctx)
	if err != nil {
		return err
	}
	if result != nil {
		sh.print(result)
	}
	return nil
}

func (sh *shell) cmdSave(ctx context.Context, _ string) error {
	if !sh.ctrl.CanSave() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "nothing to save", nil)
	}
	saved, err := sh.ctrl.Save(ctx)
	if err != nil {
		return err
	}
	if saved != nil {
		fmt.Fprintf(sh.out, "Saved analysis %s\n", saved.ID)
	}
	return nil
}

func (sh *shell) cmdAnalyses(_ context.Context, _ string) error {
	sh.print(sh.ctrl.State().SavedAnalyses)
	return nil
}

func (sh *shell) cmdView(_ context.Context, arg string) error {
	if arg == "" {
		return usageError("view")
	}
	saved, err := pick(sh.ctrl.State().SavedAnalyses, arg, func(a types.SavedAnalysis) string { return a.ID })
	if err != nil {
		return err
	}
	if err := sh.ctrl.ViewSavedAnalysis(saved); err != nil {
		return err
	}
	sh.print(saved)
	return nil
}

func (sh *shell) cmdLeave(_ context.Context, _ string) error {
	return sh.ctrl.ViewSavedAnalysis(nil)
}

func (sh *shell) cmdRefresh(ctx context.Context, _ string) error {
	if err := sh.ctrl.RefreshAnalyses(ctx); err != nil && !session.IsStale(err) {
		return err
	}
	sh.print(sh.ctrl.State().SavedAnalyses)
	return nil
}

func (sh *shell) cmdDeleteAnalysis(ctx context.Context, arg string) error {
	if arg == "" {
		return usageError("delete-analysis")
	}
	saved, err := pick(sh.ctrl.State().SavedAnalyses, arg, func(a types.SavedAnalysis) string { return a.ID })
	if err != nil {
		return err
	}
	if err := sh.ctrl.DeleteSavedAnalysis(ctx, saved.ID); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted analysis %s\n", saved.ID)
	return nil
}

func (sh *shell) cmdDeleteResume(ctx context.Context, arg string) error {
	if arg == "" {
		return usageError("delete-resume")
	}
	resume, err := pick(sh.ctrl.State().Resumes, arg, func(r types.Resume) string { return r.ID })
	if err != nil {
		return err
	}
	if err := sh.ctrl.DeleteResume(ctx, resume.ID); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted resume %s\n", resume.FileName)
	return nil
}

func (sh *shell) cmdState(_ context.Context, _ string) error {
	sh.print(sh.ctrl.State())
	return nil
}

func (sh *shell) cmdHelp(_ context.Context, _ string) error {
	w := 0
	for _, name := range shellOrder {
		w = max(w, len(shellCommands[name].usage))
	}
	for _, name := range shellOrder {
		c := shellCommands[name]
		fmt.Fprintf(sh.out, "  %-*s  %s\n", w, c.usage, c.help)
	}
	return nil
}

func usageError(name string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		"usage: "+shellCommands[name].usage, nil)
}

// pick resolves a 1-based list position or an ID against items
func pick[T any](items []T, ref string, id func(T) string) (*T, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return &items[n-1], nil
	}
	for i := range items {
		if id(items[i]) == ref {
			return &items[i], nil
		}
	}
	return nil, errors.NewValidationError(errors.ErrCodeNotFound,
		fmt.Sprintf("no entry %q in the list", ref), nil)
}
