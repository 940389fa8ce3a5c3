package main

import (
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/sells-group/outreach-cli/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync leads between the local store and Airtable",
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Copy Airtable records into the local store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		syncer, closer, err := initSyncer(cmd)
		if err != nil {
			return err
		}
		defer closer()

		res, err := syncer.Pull(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("pulled %d records: %d created, %d updated, %d skipped\n",
			res.Fetched, res.Created, res.Updated, res.Skipped)
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send local leads to Airtable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		syncer, closer, err := initSyncer(cmd)
		if err != nil {
			return err
		}
		defer closer()

		res, err := syncer.Push(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("pushed: %d created, %d updated, %d skipped\n",
			res.Created, res.Updated, res.Skipped)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare local and Airtable record counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		syncer, closer, err := initSyncer(cmd)
		if err != nil {
			return err
		}
		defer closer()

		status, err := syncer.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("local leads:      %d\n", status.LocalLeads)
		fmt.Printf("local unsynced:   %d\n", status.LocalUnsynced)
		fmt.Printf("airtable records: %d\n", status.AirtableRecords)
		return nil
	},
}

func initSyncer(cmd *cobra.Command) (*syncpkg.Syncer, func(), error) {
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	at, err := initAirtable()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return syncpkg.NewSyncer(st, at, cfg.Airtable.Table), func() { st.Close() }, nil
}

func init() {
	syncCmd.AddCommand(syncPullCmd, syncPushCmd, syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
