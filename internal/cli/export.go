package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/epcr/internal/export"
	"github.com/roach88/epcr/internal/report"
	"github.com/roach88/epcr/internal/reports"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Dir      string
	Workbook string
}

// ExportResult lists the files written by export.
type ExportResult struct {
	Files []string `json:"files"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Export patient reports as documents or a workbook",
		Long: `Export patient reports.

Without --xlsx, writes one text document per report into --dir, named
patient-report-<id>.txt. With --xlsx, writes a single workbook instead.
With no ids, every report is exported.

Example:
  epcr export 0190f1c2-... --dir ./out
  epcr export --xlsx reports.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "output directory for documents (default export.dir)")
	cmd.Flags().StringVar(&opts.Workbook, "xlsx", "", "write an XLSX workbook to this path")

	return cmd
}

func runExport(opts *ExportOptions, ids []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	a, err := openApp(commandContext(cmd), opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	selected, err := selectReports(a.manager.Reports(), ids)
	if err != nil {
		return reportFailure(f, "failed to export", err)
	}

	var files []string
	if opts.Workbook != "" {
		if err := writeWorkbook(a.renderer, opts.Workbook, selected); err != nil {
			return f.fail(ExitFailure, ErrCodeWriteFailed, "failed to write workbook", err)
		}
		files = append(files, opts.Workbook)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = a.cfg.Export.Dir
		}
		files, err = writeDocuments(a.renderer, dir, selected)
		if err != nil {
			return f.fail(ExitFailure, ErrCodeWriteFailed, "failed to write documents", err)
		}
	}

	a.logger.Debug("export finished", "files", len(files))
	if f.Format == "json" {
		return f.Success(ExportResult{Files: files})
	}
	for _, path := range files {
		fmt.Fprintf(f.Writer, "Wrote %s\n", path)
	}
	return nil
}

// selectReports picks the reports with the given ids in argument order.
// No ids selects everything.
func selectReports(all []report.PatientReport, ids []string) ([]report.PatientReport, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]report.PatientReport, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}
	out := make([]report.PatientReport, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, &reports.NotFoundError{ID: id}
		}
		out = append(out, r)
	}
	return out, nil
}

func writeDocuments(x *export.Renderer, dir string, list []report.PatientReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := make([]string, 0, len(list))
	for _, r := range list {
		path := filepath.Join(dir, export.FileName(r))
		if err := writeFile(path, func(file *os.File) error { return x.RenderDocument(file, r) }); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeWorkbook(x *export.Renderer, path string, list []report.PatientReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return writeFile(path, func(file *os.File) error { return x.WriteWorkbook(file, list) })
}

// writeFile writes through a temp file and renames it into place.
func writeFile(path string, write func(*os.File) error) error {
	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tempPath, err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", tempPath, err)
	}
	return nil
}
