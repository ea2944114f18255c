package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/dal/internal/store"
)

var (
	auditLimit   int
	auditCaller  string
	auditOutcome string
	auditEvent   string
	auditJSON    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect stored audit entries, events and runs",
	Long: `Reads the store written by 'dal run' when audit.enabled is set.

Examples:
  dal audit entries --outcome denied
  dal audit events --name Deposited
  dal audit runs --limit 10
  dal audit stats`,
}

var auditEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List @secure audit entries, newest first",
	RunE:  runAuditEntries,
}

var auditEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List emitted events, newest first",
	RunE:  runAuditEvents,
}

var auditRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List program runs, newest first",
	RunE:  runAuditRuns,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runAuditStats,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditEntriesCmd, auditEventsCmd, auditRunsCmd, auditStatsCmd)

	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", store.DefaultListLimit, "maximum number of records")
	auditCmd.PersistentFlags().BoolVar(&auditJSON, "json", false, "print JSON")
	auditEntriesCmd.Flags().StringVar(&auditCaller, "caller", "", "only entries of this caller")
	auditEntriesCmd.Flags().StringVar(&auditOutcome, "outcome", "", "only entries with this outcome (allowed, denied, reentrancy)")
	auditEventsCmd.Flags().StringVar(&auditEvent, "name", "", "only events with this name")
}

func openStore() (store.Store, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Audit.Path})
}

func runAuditEntries(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListAudit(context.Background(), store.AuditFilter{
		Caller:  auditCaller,
		Outcome: auditOutcome,
		Limit:   auditLimit,
	})
	if err != nil {
		return err
	}
	if auditJSON {
		return printJSON(cmd.OutOrStdout(), records)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCALLER\tMETHOD\tINSTANCE\tOUTCOME")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Caller, r.Method, r.Instance, r.Outcome)
	}
	return w.Flush()
}

func runAuditEvents(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListEvents(context.Background(), auditEvent, auditLimit)
	if err != nil {
		return err
	}
	if auditJSON {
		return printJSON(cmd.OutOrStdout(), records)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tSOURCE\tDATA")
	for _, r := range records {
		source := r.Service
		if r.Agent != "" {
			source = r.Agent
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
			r.Timestamp.Local().Format(time.DateTime), r.Name, source, r.Data)
	}
	return w.Flush()
}

func runAuditRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), auditLimit, 0)
	if err != nil {
		return err
	}
	if auditJSON {
		return printJSON(cmd.OutOrStdout(), runs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\t%s\n",
			shortID(r.ID), r.File, r.Status, r.StartedAt.Local().Format(time.DateTime), r.Duration, r.Error)
	}
	return w.Flush()
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Statistics(context.Background())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), stats)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
