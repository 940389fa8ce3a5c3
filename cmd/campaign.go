package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

var (
	campaignName  string
	campaignDelay string
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run and inspect outreach campaigns",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the campaign scheduler until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, closer, err := initScheduler(cmd)
		if err != nil {
			return err
		}
		defer closer()

		if err := sched.Run(ctx); !eris.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var campaignOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single scheduler pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sched, closer, err := initScheduler(cmd)
		if err != nil {
			return err
		}
		defer closer()

		stats, err := sched.Tick(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("due %d, sent %d, failed %d, capped %d, skipped %d\n",
			stats.Due, stats.Sent, stats.Failed, stats.Capped, stats.Skipped)
		return nil
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize campaign progress and failures",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		campaign, err := loadCampaign()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		byStep := make(map[int]int)
		failed := 0
		for _, status := range []model.LeadStatus{
			model.LeadStatusQueued, model.LeadStatusContacted,
			model.LeadStatusReplied, model.LeadStatusBounced, model.LeadStatusUnsubscribed,
		} {
			leads, err := st.ListLeads(ctx, store.LeadFilter{Status: status})
			if err != nil {
				return err
			}
			for i := range leads {
				sends, err := st.ListSends(ctx, leads[i].ID, campaign.Name)
				if err != nil {
					return err
				}
				for _, s := range sends {
					switch s.Status {
					case model.SendStatusSent:
						byStep[s.Step]++
					case model.SendStatusFailed:
						failed++
					}
				}
			}
		}

		fmt.Printf("campaign %q (%d steps)\n", campaign.Name, len(campaign.Steps))
		for i, step := range campaign.Steps {
			label := step.ID
			if label == "" {
				label = fmt.Sprintf("step %d", i)
			}
			fmt.Printf("  %-20s sent %d\n", label, byStep[i])
		}
		fmt.Printf("  failed sends: %d\n", failed)

		dls, err := st.ListDeadLetters(ctx, store.DeadLetterFilter{Campaign: campaign.Name})
		if err != nil {
			return err
		}
		fmt.Printf("  dead letters: %d\n", len(dls))
		return nil
	},
}

var campaignPullTemplatesCmd = &cobra.Command{
	Use:   "pull-templates",
	Short: "Build a campaign YAML from the Notion template database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("notion"); err != nil {
			return err
		}

		nc := notion.NewClient(cfg.Notion.Token)
		templates, err := notion.ListTemplates(ctx, nc, cfg.Notion.TemplateDB)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			return eris.New("notion template database has no usable rows")
		}

		// Marshal through a string-delay view so delays stay human-readable.
		type yamlStep struct {
			ID      string `yaml:"id"`
			Subject string `yaml:"subject"`
			Body    string `yaml:"body"`
			Delay   string `yaml:"delay,omitempty"`
		}
		doc := struct {
			Name  string     `yaml:"name"`
			Steps []yamlStep `yaml:"steps"`
		}{Name: campaignName}

		for i, t := range templates {
			step := yamlStep{
				ID:      fmt.Sprintf("step-%d", t.Step),
				Subject: t.Subject,
				Body:    t.Body,
			}
			if i > 0 {
				step.Delay = campaignDelay
			}
			doc.Steps = append(doc.Steps, step)
		}

		data, err := yaml.Marshal(doc)
		if err != nil {
			return eris.Wrap(err, "marshal campaign yaml")
		}

		if err := os.MkdirAll(cfg.Outreach.CampaignDir, 0o755); err != nil {
			return eris.Wrap(err, "create campaign dir")
		}
		path := filepath.Join(cfg.Outreach.CampaignDir, campaignName+".yaml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write campaign yaml")
		}

		zap.L().Info("campaign templates pulled",
			zap.String("path", path),
			zap.Int("steps", len(doc.Steps)),
		)
		return nil
	},
}

func loadCampaign() (*outreach.Campaign, error) {
	path := filepath.Join(cfg.Outreach.CampaignDir, campaignName+".yaml")
	return outreach.LoadCampaign(path)
}

func initScheduler(cmd *cobra.Command) (*outreach.Scheduler, func(), error) {
	campaign, err := loadCampaign()
	if err != nil {
		return nil, nil, err
	}

	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	sender, from, err := initSender()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	gen, err := initGenerator(campaign)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	sched := outreach.NewScheduler(st, sender, gen, campaign, schedulerConfig(from))
	return sched, func() { st.Close() }, nil
}

func init() {
	campaignCmd.PersistentFlags().StringVar(&campaignName, "name", "", "campaign name (required)")
	_ = campaignCmd.MarkPersistentFlagRequired("name")
	campaignPullTemplatesCmd.Flags().StringVar(&campaignDelay, "delay", "72h", "delay between pulled steps")

	campaignCmd.AddCommand(campaignRunCmd, campaignOnceCmd, campaignStatusCmd, campaignPullTemplatesCmd)
	rootCmd.AddCommand(campaignCmd)
}
