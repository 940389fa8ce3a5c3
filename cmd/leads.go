package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	leadsStatus string
	leadsSource string
	leadsLimit  int
	leadsOut    string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export the local lead store",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status: model.LeadStatus(leadsStatus),
			Source: leadsSource,
			Limit:  leadsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tEMAIL\tSTATUS\tCONFIDENCE")
		for _, l := range leads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
				shortID(l.ID), l.Name, l.Company, l.Email, l.Status, l.Confidence)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}

		fmt.Printf("\n%d leads\n", len(leads))
		return nil
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show one lead as JSON, with its sends and events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return err
		}
		sends, err := st.ListSends(ctx, lead.ID, "")
		if err != nil {
			return err
		}
		events, err := st.ListEvents(ctx, lead.ID)
		if err != nil {
			return err
		}

		out := struct {
			Lead   *model.Lead   `json:"lead"`
			Sends  []model.Send  `json:"sends,omitempty"`
			Events []model.Event `json:"events,omitempty"`
		}{lead, sends, events}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status: model.LeadStatus(leadsStatus),
			Source: leadsSource,
		})
		if err != nil {
			return err
		}

		data, err := csvutil.Marshal(leads)
		if err != nil {
			return eris.Wrap(err, "marshal leads csv")
		}

		if leadsOut == "" || leadsOut == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(leadsOut, data, 0o644); err != nil {
			return eris.Wrap(err, "write export file")
		}

		zap.L().Info("export complete",
			zap.String("path", leadsOut),
			zap.Int("leads", len(leads)),
		)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	leadsCmd.PersistentFlags().StringVar(&leadsStatus, "status", "", "filter by status")
	leadsCmd.PersistentFlags().StringVar(&leadsSource, "source", "", "filter by source")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 50, "max rows")
	leadsExportCmd.Flags().StringVar(&leadsOut, "out", "", "output file (default stdout)")

	leadsCmd.AddCommand(leadsListCmd, leadsShowCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}
