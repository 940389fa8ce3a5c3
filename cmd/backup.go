package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	backupOut  string
	backupJSON string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the database and export leads to JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stamp := time.Now().UTC().Format("20060102-150405")

		if backuper, ok := st.(store.Backuper); ok {
			path := backupOut
			if path == "" {
				path = fmt.Sprintf("outreach-%s.db", stamp)
			}
			if err := backuper.Backup(ctx, path); err != nil {
				return err
			}
			zap.L().Info("backup: database snapshot written", zap.String("path", path))
		} else if backupOut != "" {
			return eris.New("configured store does not support file snapshots")
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{})
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(leads, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal leads")
		}

		jsonPath := backupJSON
		if jsonPath == "" {
			jsonPath = fmt.Sprintf("leads-%s.json", stamp)
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return eris.Wrap(err, "write json export")
		}

		zap.L().Info("backup: leads exported",
			zap.String("path", jsonPath),
			zap.Int("leads", len(leads)),
		)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupOut, "out", "", "database snapshot path")
	backupCmd.Flags().StringVar(&backupJSON, "json", "", "JSON export path")
	rootCmd.AddCommand(backupCmd)
}
