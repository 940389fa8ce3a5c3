package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/clean"
	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	importFile   string
	importFTPURL string
	importSource string
	importSheet  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV, XLSX, or FTP vendor drop",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (importFile == "") == (importFTPURL == "") {
			return eris.New("exactly one of --file or --ftp-url is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		path := importFile
		if importFTPURL != "" {
			tmp, err := downloadDrop(ctx, importFTPURL)
			if err != nil {
				return err
			}
			defer os.Remove(tmp)
			path = tmp
		}

		leads, err := readLeadFile(path)
		if err != nil {
			return err
		}

		created, skipped := 0, 0
		for _, lead := range leads {
			clean.Apply(lead)
			if lead.Email != "" {
				if existing, err := st.GetLeadByEmail(ctx, lead.Email); err == nil && existing != nil {
					skipped++
					continue
				}
			}
			if importSource != "" {
				lead.Source = importSource
			}
			if err := st.UpsertLead(ctx, lead); err != nil {
				zap.L().Warn("import: upsert failed", zap.String("email", lead.Email), zap.Error(err))
				skipped++
				continue
			}
			created++
		}

		zap.L().Info("import complete",
			zap.String("path", path),
			zap.Int("created", created),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

// readLeadFile dispatches on file extension.
func readLeadFile(path string) ([]*model.Lead, error) {
	source := importSource
	if source == "" {
		source = "import:" + filepath.Base(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open csv")
		}
		defer f.Close()
		header, rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{})
		if err != nil {
			return nil, err
		}
		return fetcher.MapLeads(header, rows, source), nil
	case ".xlsx":
		header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: importSheet})
		if err != nil {
			return nil, err
		}
		return fetcher.MapLeads(header, rows, source), nil
	default:
		return nil, eris.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// downloadDrop fetches an FTP vendor drop to a temp file and returns its path.
func downloadDrop(ctx context.Context, ftpURL string) (string, error) {
	ext := filepath.Ext(ftpURL)
	if ext == "" {
		ext = ".csv"
	}
	tmp, err := os.CreateTemp("", "drop-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "create temp file")
	}
	tmp.Close()

	f := fetcher.NewFTPFetcher(30 * time.Second)
	n, err := f.DownloadToFile(ctx, ftpURL, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	zap.L().Info("import: downloaded vendor drop",
		zap.String("url", ftpURL),
		zap.Int64("bytes", n),
	)
	return tmp.Name(), nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV or XLSX file")
	importCmd.Flags().StringVar(&importFTPURL, "ftp-url", "", "FTP URL of a vendor drop")
	importCmd.Flags().StringVar(&importSource, "source", "", "source label stored on imported leads")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	rootCmd.AddCommand(importCmd)
}
