package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/dedupe"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	syncpkg "github.com/sells-group/outreach-cli/internal/sync"
)

var (
	dedupeSource   string
	dedupeJSON     bool
	dedupeStrategy string
	dedupeApply    bool
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and resolve duplicate leads",
}

var dedupeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find duplicate groups within one system",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, st, err := loadRecords(ctx, dedupeSource)
		if err != nil {
			return err
		}
		defer st.Close()

		grouper := dedupe.NewGrouper(cfg.Dedupe.Fields, cfg.Dedupe.Threshold)
		groups := grouper.FindDuplicates(records)

		if dedupeJSON {
			return printJSON(groups)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tVALUE\tRECORDS\tCONFIDENCE")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n",
				g.MatchingField, g.MatchingValue, len(g.Records), g.ConfidenceScore)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}

		fmt.Printf("\n%d duplicate groups in %d records\n", len(groups), len(records))
		return nil
	},
}

var dedupeCrossCmd = &cobra.Command{
	Use:   "cross",
	Short: "Find leads present in both the local store and Airtable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		at, err := initAirtable()
		if err != nil {
			return err
		}

		dbRecords, err := localRecords(ctx, st)
		if err != nil {
			return err
		}
		atRecords := syncpkg.NewSyncer(st, at, cfg.Airtable.Table).FetchRecords(ctx)

		dupes := dedupe.FindCrossSystemDuplicates(dbRecords, atRecords)

		if dedupeJSON {
			return printJSON(dupes)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DB EMAIL\tAIRTABLE EMAIL\tFIELDS\tCONFIDENCE\tSUGGESTED PRIMARY")
		for _, d := range dupes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
				d.DatabaseRecord.String(model.FieldEmail),
				d.AirtableRecord.String(model.FieldEmail),
				strings.Join(d.MatchingFields, ","),
				d.ConfidenceScore,
				d.SuggestedPrimary,
			)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}

		fmt.Printf("\n%d cross-system duplicates\n", len(dupes))
		return nil
	},
}

var dedupeResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Collapse duplicate groups (dry run unless --apply)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		strategy, err := dedupe.ParseStrategy(dedupeStrategy)
		if err != nil {
			return err
		}

		records, st, err := loadRecords(ctx, "db")
		if err != nil {
			return err
		}
		defer st.Close()

		grouper := dedupe.NewGrouper(cfg.Dedupe.Fields, cfg.Dedupe.Threshold)
		groups := grouper.FindDuplicates(records)

		var deleter dedupe.Deleter
		if dedupeApply {
			deleter = st
		}
		result := dedupe.NewResolver(deleter).Resolve(ctx, groups, strategy)

		if dedupeJSON {
			return printJSON(result)
		}

		mode := "dry run"
		if dedupeApply {
			mode = "applied"
		}
		fmt.Printf("%s (%s): %d groups processed, %d records deleted, %d merged\n",
			mode, strategy, result.DuplicatesProcessed, result.RecordsDeleted, result.RecordsMerged)
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}
		return nil
	},
}

// loadRecords loads dedupe records from the requested source. The returned
// store is non-nil only for the db source; callers that need it must close it.
func loadRecords(ctx context.Context, source string) ([]model.Record, *storeHandle, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	switch source {
	case "db", "":
		records, err := localRecords(ctx, st)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		return records, &storeHandle{st}, nil
	case "airtable":
		defer st.Close()
		at, err := initAirtable()
		if err != nil {
			return nil, nil, err
		}
		records := syncpkg.NewSyncer(st, at, cfg.Airtable.Table).FetchRecords(ctx)
		return records, &storeHandle{}, nil
	default:
		st.Close()
		return nil, nil, eris.Errorf("unknown source %q (want db or airtable)", source)
	}
}

// storeHandle lets loadRecords hand back a closable store or a no-op.
type storeHandle struct {
	store.Store
}

func (h *storeHandle) Close() error {
	if h.Store == nil {
		return nil
	}
	return h.Store.Close()
}

func localRecords(ctx context.Context, st store.Store) ([]model.Record, error) {
	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, err
	}
	records := make([]model.Record, len(leads))
	for i := range leads {
		records[i] = leads[i].Record()
	}
	return records, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	dedupeCmd.PersistentFlags().BoolVar(&dedupeJSON, "json", false, "emit JSON instead of a table")
	dedupeScanCmd.Flags().StringVar(&dedupeSource, "source", "db", "system to scan: db or airtable")
	dedupeResolveCmd.Flags().StringVar(&dedupeStrategy, "strategy", string(dedupe.StrategyMostRecent), "resolution strategy: most_recent, highest_quality, merge")
	dedupeResolveCmd.Flags().BoolVar(&dedupeApply, "apply", false, "actually delete duplicates (default dry run)")

	dedupeCmd.AddCommand(dedupeScanCmd, dedupeCrossCmd, dedupeResolveCmd)
	rootCmd.AddCommand(dedupeCmd)
}
