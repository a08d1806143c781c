package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
	"github.com/adverant/nexus/electoralroll-worker/internal/output"
)

var (
	coversDir       string
	coversNaming    string
	coversAC        int
	coversStartPart int
	coversEndPart   int
	coversFormat    string
)

var coversCmd = &cobra.Command{
	Use:   "covers",
	Short: "Extract the cover record of every part file of a constituency",
	Long: `Scans --dir for <filename>No_<ac>PartNo_<part>.pdf, reads page 1 of each
file in part order and writes one row per file to <output>/output<ac>.csv.`,
	RunE: runCovers,
}

func init() {
	coversCmd.Flags().StringVar(&coversDir, "dir", ".", "directory holding the part files")
	coversCmd.Flags().StringVar(&coversNaming, "filename", "", "file name prefix before No_ (required)")
	coversCmd.Flags().IntVar(&coversAC, "ac", 0, "assembly constituency number (required)")
	coversCmd.Flags().IntVar(&coversStartPart, "startpart", 0, "first part to process")
	coversCmd.Flags().IntVar(&coversEndPart, "endpart", extraction.MaxParts, "last part to process")
	coversCmd.Flags().StringVar(&coversFormat, "format", "csv", "output format: csv or json")
	coversCmd.MarkFlagRequired("filename")
	coversCmd.MarkFlagRequired("ac")
	rootCmd.AddCommand(coversCmd)
}

func runCovers(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	format, err := output.ParseFormat(coversFormat)
	if err != nil {
		return err
	}
	matcher, err := extraction.NewRollFileMatcher(coversNaming, coversAC, coversStartPart, coversEndPart)
	if err != nil {
		return err
	}
	files, err := scanRollFiles(coversDir, matcher)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no part files for AC %d in %s", coversAC, coversDir)
	}
	log.Info("Processing cover pages", "files", len(files), "ac", coversAC)

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	results, batchErr := proc.ProcessCovers(ctx, paths)

	path := output.CoverPath(cfg.OutputDir, coversAC, format)
	w, err := output.CreateCoverFile(path, format)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Record == nil {
			if r.Err != nil {
				failed++
			}
			continue
		}
		if err := w.Write(r.Record); err != nil {
			w.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Info("Cover extraction finished", "written", w.Rows(), "failed", failed, "output", path)
	if batchErr != nil {
		return fmt.Errorf("batch interrupted: %w", batchErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
