package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/clean"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var cleanStatus string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize and re-validate stored leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{Status: model.LeadStatus(cleanStatus)})
		if err != nil {
			return err
		}

		cleaned, unchanged, invalid := 0, 0, 0
		for i := range leads {
			lead := &leads[i]
			changed := clean.Apply(lead)

			if v := clean.Validate(lead.Record()); len(v.Issues) > 0 {
				invalid++
				for _, issue := range v.Issues {
					zap.L().Debug("clean: lead has issue",
						zap.String("lead_id", lead.ID),
						zap.String("field", issue.Field),
						zap.String("reason", issue.Reason),
					)
				}
			}
			if lead.Status == model.LeadStatusNew {
				lead.Status = model.LeadStatusCleaned
				changed = true
			}

			if !changed {
				unchanged++
				continue
			}
			if err := st.UpsertLead(ctx, lead); err != nil {
				zap.L().Warn("clean: upsert failed", zap.String("lead_id", lead.ID), zap.Error(err))
				continue
			}
			cleaned++
		}

		zap.L().Info("clean complete",
			zap.Int("cleaned", cleaned),
			zap.Int("unchanged", unchanged),
			zap.Int("invalid", invalid),
		)
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanStatus, "status", "", "only clean leads with this status")
	rootCmd.AddCommand(cleanCmd)
}
