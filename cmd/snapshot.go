package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sld-insights/internal/dashboard"
)

var snapshotLimit int

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Store and inspect dashboard snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Build the dashboard for the selected metros and store it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, rows, err := dashboard.SaveSnapshot(ctx, st, ds, currentSelection(), cfg.DashboardOptions())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"id":         snap.ID,
			"metros":     snap.Metros,
			"created_at": snap.CreatedAt,
			"states":     len(rows),
		})
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snaps, err := st.ListSnapshots(ctx, snapshotLimit)
		if err != nil {
			return err
		}

		type summary struct {
			ID        string   `json:"id"`
			Metros    []string `json:"metros"`
			CreatedAt string   `json:"created_at"`
		}
		out := make([]summary, len(snaps))
		for i, s := range snaps {
			out[i] = summary{ID: s.ID, Metros: s.Metros, CreatedAt: s.CreatedAt.Format(time.RFC3339)}
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored snapshot with its state averages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.GetSnapshot(ctx, args[0])
		if err != nil {
			return err
		}
		rows, err := st.ListStateAverages(ctx, snap.ID)
		if err != nil {
			return eris.Wrapf(err, "snapshot show: state averages for %s", snap.ID)
		}
		top, err := st.ListMetroStats(ctx, snap.ID)
		if err != nil {
			return eris.Wrapf(err, "snapshot show: top metros for %s", snap.ID)
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"snapshot":   snap,
			"states":     rows,
			"top_metros": top,
		})
	},
}

func init() {
	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 0, "maximum snapshots to list (default 50)")
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}
