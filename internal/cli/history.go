package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"heston-greeks/internal/models"
	"heston-greeks/internal/store"
	"heston-greeks/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse runs recorded in the ledger",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ledger, err := app.ledger()
			if err != nil {
				return err
			}

			filter := store.RunFilter{}
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if w, _ := cmd.Flags().GetString("workflow"); w != "" {
				filter.Workflow = models.Workflow(w)
			}
			if s, _ := cmd.Flags().GetString("scheme"); s != "" {
				scheme, err := models.ParseSchemeName(s)
				if err != nil {
					return err
				}
				filter.Scheme = scheme
			}

			runs, err := ledger.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No runs recorded")
				return nil
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					string(r.Workflow),
					string(r.Scheme),
					strconv.FormatUint(r.Seed, 10),
					utils.FormatCount(int64(r.Paths)),
					strconv.Itoa(r.Trials),
					utils.FormatDuration(r.Duration),
				}
			}
			output.Table([]string{"ID", "Started", "Workflow", "Scheme", "Seed", "Paths", "Trials", "Duration"}, rows)
			return nil
		},
	}
	list.Flags().Int("limit", 20, "maximum runs to list (0 for all)")
	list.Flags().String("workflow", "", "only runs of this workflow (trials or sweep)")
	list.Flags().String("scheme", "", "only runs of this scheme (fd or malliavin)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run with its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ledger, err := app.ledger()
			if err != nil {
				return err
			}
			run, err := ledger.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			series, err := ledger.GetSeries(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newBatchReport(*run, series, nil))
			}
			renderBatch(output, *run, series, nil)
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Rewrite the series files of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ledger, err := app.ledger()
			if err != nil {
				return err
			}
			run, err := ledger.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			series, err := ledger.GetSeries(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			dir, _ := cmd.Flags().GetString("out")
			if dir == "" {
				dir = run.OutputDir
			}
			files, err := store.NewFileSeriesWriter(dir, store.DefaultPrefix(run.Scheme)).Write(series)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"run_id": run.ID, "files": files})
			}
			for _, f := range files {
				output.Printf("%s\n", f)
			}
			return nil
		},
	}
	export.Flags().String("out", "", "output directory (default: the run's original directory)")

	cmd.AddCommand(list, show, export)
	return cmd
}
