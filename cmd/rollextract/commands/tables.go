package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/electoralroll-worker/internal/output"
)

var (
	tablesFile      string
	tablesFirstPage int
	tablesLastPage  int
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Extract the voter grid of every table page of a roll",
	Long: `Reads the table pages of --file (by default from TABLE_FIRST_PAGE to the page
before the trailing summary) and writes 30 rows per page to
<output>/voters_<file>.csv.`,
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().StringVar(&tablesFile, "file", "", "roll PDF (required)")
	tablesCmd.Flags().IntVar(&tablesFirstPage, "first-page", 0, "first table page, 1-based")
	tablesCmd.Flags().IntVar(&tablesLastPage, "last-page", 0, "last table page, 1-based")
	tablesCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	pages, failures, err := proc.ProcessTables(ctx, tablesFile, tablesFirstPage, tablesLastPage)
	if err != nil {
		return err
	}
	for _, f := range failures {
		log.Warn("Table page failed", "page", f.Page, "error", f.Err)
	}

	name := filepath.Base(tablesFile)
	for _, p := range pages {
		p.FileName = name
	}
	path := output.VoterPath(cfg.OutputDir, tablesFile)
	if err := output.WriteVoterFile(path, pages); err != nil {
		return err
	}

	log.Info("Table extraction finished", "pages", len(pages), "failed", len(failures), "output", path)
	if len(failures) > 0 {
		return fmt.Errorf("%d table pages failed", len(failures))
	}
	return nil
}
