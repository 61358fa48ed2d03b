package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/epcr/internal/export"
	"github.com/roach88/epcr/internal/report"
	"github.com/roach88/epcr/internal/reports"
	"github.com/roach88/epcr/internal/store"
)

// vitalsFlags binds the --bp/--pulse/--temp/--spo2 flags.
type vitalsFlags struct {
	BP    string
	Pulse string
	Temp  string
	SpO2  string
}

func (v *vitalsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.BP, "bp", "", "blood pressure, e.g. 120/80")
	cmd.Flags().StringVar(&v.Pulse, "pulse", "", "pulse rate")
	cmd.Flags().StringVar(&v.Temp, "temp", "", "temperature")
	cmd.Flags().StringVar(&v.SpO2, "spo2", "", "oxygen saturation")
}

func (v *vitalsFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"bp", "pulse", "temp", "spo2"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (v *vitalsFlags) vitals() report.Vitals {
	return report.Vitals{BP: v.BP, Pulse: v.Pulse, Temp: v.Temp, SpO2: v.SpO2}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		patientID string
		careLevel string
		staffID   string
		vitals    vitalsFlags
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new patient report",
		Long: `Record a new patient report.

The report id and creation time are assigned automatically. The staff id
defaults to the logged-in user.

Example:
  epcr add --patient P1 --care-level ALS --bp 120/80 --pulse 72`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			draft, err := report.Prepare(report.Draft{
				PatientID:    patientID,
				CareLevel:    report.CareLevel(careLevel),
				StaffID:      staffID,
				ClinicalInfo: report.ClinicalInfo{Vitals: vitals.vitals()},
			})
			if err != nil {
				return reportFailure(f, "invalid report", err)
			}

			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			if draft.StaffID == "" {
				draft.StaffID = a.session.StaffID()
			}

			r, err := a.manager.AddReport(ctx, draft)
			if err != nil {
				return reportFailure(f, "failed to add report", err)
			}

			if f.Format == "json" {
				return f.Success(r)
			}
			return f.Success(fmt.Sprintf("Added report %s", r.ID))
		},
	}

	cmd.Flags().StringVar(&patientID, "patient", "", "patient identifier (required)")
	cmd.Flags().StringVar(&careLevel, "care-level", "", "care level: ALS, ILS or BLS (required)")
	cmd.Flags().StringVar(&staffID, "staff", "", "staff id (defaults to the logged-in user)")
	vitals.register(cmd)
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("care-level")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List patient reports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(commandContext(cmd), rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.manager.Reports()
			if f.Format == "json" {
				return f.Success(list)
			}

			if len(list) == 0 {
				fmt.Fprintln(f.Writer, "No reports.")
				return nil
			}

			w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTIME\tPATIENT\tCARE LEVEL\tSTAFF")
			for _, r := range list {
				created := a.renderer.CreatedAt(r)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					created.Format(export.DateLayout),
					created.Format(export.TimeLayout),
					r.PatientID,
					r.CareLevel,
					r.StaffID,
				)
			}
			return w.Flush()
		},
	}

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one patient report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)

			a, err := openApp(ctx, rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			r, ok, err := a.manager.GetReport(ctx, args[0])
			if err != nil {
				return reportFailure(f, "failed to read report", err)
			}
			if !ok {
				return reportFailure(f, "failed to read report", &reports.NotFoundError{ID: args[0]})
			}

			if f.Format == "json" {
				return f.Success(r)
			}
			return a.renderer.RenderDocument(f.Writer, r)
		},
	}

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		patientID string
		careLevel string
		staffID   string
		vitals    vitalsFlags
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a patient report",
		Long: `Change fields of a patient report.

Only the flags given are changed. Any vitals flag replaces the whole vitals
block, so readings not repeated are cleared.

Example:
  epcr update 0190f1c2-... --care-level BLS`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			var patch report.Patch
			if cmd.Flags().Changed("patient") {
				patch.PatientID = report.String(patientID)
			}
			if cmd.Flags().Changed("care-level") {
				patch.CareLevel = report.Level(report.CareLevel(careLevel))
			}
			if cmd.Flags().Changed("staff") {
				patch.StaffID = report.String(staffID)
			}
			if vitals.changed(cmd) {
				patch.ClinicalInfo = report.Info(vitals.vitals())
			}
			if patch.IsEmpty() {
				return f.fail(ExitCommandError, ErrCodeInvalidInput, "nothing to update", nil)
			}

			patch, err := report.PreparePatch(patch)
			if err != nil {
				return reportFailure(f, "invalid update", err)
			}

			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.manager.UpdateReport(ctx, args[0], patch)
			if err != nil {
				return reportFailure(f, "failed to update report", err)
			}

			if f.Format == "json" {
				return f.Success(r)
			}
			return f.Success(fmt.Sprintf("Updated report %s (%s)", r.ID, strings.Join(patch.Fields(), ", ")))
		},
	}

	cmd.Flags().StringVar(&patientID, "patient", "", "patient identifier")
	cmd.Flags().StringVar(&careLevel, "care-level", "", "care level: ALS, ILS or BLS")
	cmd.Flags().StringVar(&staffID, "staff", "", "staff id")
	vitals.register(cmd)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Permanently delete a patient report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)

			a, err := openApp(ctx, rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.DeleteReport(ctx, args[0]); err != nil {
				return reportFailure(f, "failed to delete report", err)
			}

			if f.Format == "json" {
				return f.Success(map[string]string{"id": args[0]})
			}
			return f.Success(fmt.Sprintf("Deleted report %s", args[0]))
		},
	}

	return cmd
}

// reportFailure maps manager and input errors to exit and error codes.
func reportFailure(f *OutputFormatter, message string, err error) error {
	var verr *report.ValidationError
	switch {
	case errors.As(err, &verr):
		return f.fail(ExitFailure, ErrCodeInvalidInput, verr.Error(), err)
	case reports.IsNotFound(err):
		return f.fail(ExitCommandError, ErrCodeNotFound, err.Error(), err)
	case store.IsStorageError(err):
		return f.fail(ExitFailure, ErrCodeStorage, message, err)
	default:
		return f.fail(ExitFailure, ErrCodeGeneric, message, err)
	}
}
