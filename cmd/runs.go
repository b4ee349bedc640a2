package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/orientation-cli/internal/model"
	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect orientation run history",
	Long:  "Commands for listing runs, viewing a run and reading its result rows.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orientation runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs results --

var runsResultsCmd = &cobra.Command{
	Use:   "results <run-id>",
	Short: "Print a run's result rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orientation, _ := cmd.Flags().GetString("orientation")
		if orientation != "" {
			if _, err := orient.ParseLabel(orientation); err != nil {
				return err
			}
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		st, err := requireStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "runs results")
		}
		rows, err := st.ListResults(ctx, args[0], store.ResultFilter{
			Orientation: orientation,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs results")
		}

		formatResults(os.Stdout, rows)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsResultsCmd.Flags().String("orientation", "", "only rows with this label (N, NE, ..., Unknown)")
	runsResultsCmd.Flags().Int("limit", 100, "max number of rows to display")
	runsResultsCmd.Flags().Int("offset", 0, "number of rows to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsResultsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPROPERTIES\tKNOWN\tIMPUTED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t----------\t-----\t-------\t-------\t--------")

	for _, r := range runs {
		end := r.UpdatedAt
		if r.CompletedAt != nil {
			end = *r.CompletedAt
		}
		dur := end.Sub(r.CreatedAt).Round(time.Second).String()

		properties, known, imputed := "-", "-", "-"
		if r.Summary != nil {
			properties = fmt.Sprintf("%d", r.Summary.Total)
			known = fmt.Sprintf("%.1f%%", r.Summary.KnownPercent)
			imputed = fmt.Sprintf("%d", r.Summary.Imputed)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			properties,
			known,
			imputed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatResults writes result rows to w.
func formatResults(out io.Writer, rows []model.PropertyResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEQ\tKEY\tADDRESS\tORIENTATION\tREASON")
	for _, r := range rows {
		label := r.Orientation
		if r.Imputed {
			label += "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.Seq, r.Key, r.Address, label, r.Reason)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
