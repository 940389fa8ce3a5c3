package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/promote"
)

var promoteOpens int

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote engaged leads to Salesforce",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		promoter := promote.NewPromoter(st, sf, promote.WithOpenThreshold(promoteOpens))
		res, err := promoter.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("examined %d leads: %d promoted, %d skipped\n",
			res.Examined, res.Promoted, res.Skipped)
		for _, e := range res.Errors {
			fmt.Printf("error: %s\n", e)
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().IntVar(&promoteOpens, "opens", promote.DefaultOpenThreshold,
		"opens that make an un-replied lead engaged")
	rootCmd.AddCommand(promoteCmd)
}
