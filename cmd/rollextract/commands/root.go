package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/electoralroll-worker/internal/config"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
)

var (
	outputDir string
	workers   int
	verbose   bool

	cfg *config.Config
	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rollextract",
	Short: "Extract structured records from scanned electoral roll PDFs",
	Long: `rollextract OCRs electoral roll PDFs and writes one record per part file
cover page, or 30 voter rows per table page. Jobs can also be queued for the
worker instead of being processed locally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		if outputDir != "" {
			loaded.OutputDir = outputDir
		}
		if workers > 0 {
			loaded.WorkerConcurrency = workers
		}
		logging.Configure(logging.Options{Level: loaded.LogLevel, Format: loaded.LogFormat})
		cfg = loaded
		log = logging.NewLogger("rollextract")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default OUTPUT_DIR)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "pages processed in parallel (default WORKER_CONCURRENCY)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newProcessor builds a processor without persistence
func newProcessor() (*processor.RollProcessor, error) {
	ocr, err := processor.NewTesseractOCR(&processor.TesseractConfig{
		HindiLang:   cfg.HindiLang,
		EnglishLang: cfg.EnglishLang,
		Logger:      logging.NewLogger("ocr"),
	})
	if err != nil {
		return nil, fmt.Errorf("init OCR: %w", err)
	}
	return processor.NewRollProcessor(&processor.ProcessorConfig{
		OCR:                ocr,
		Renderer:           processor.NewPDFRenderer(cfg.PDFToPPMPath, cfg.RenderDPI, cfg.TempDir),
		Logger:             logging.NewLogger("processor"),
		RenderDPI:          cfg.RenderDPI,
		ContrastBoost:      cfg.ContrastBoost,
		TableFirstPage:     cfg.TableFirstPage,
		TableTrailingPages: cfg.TableTrailingPages,
		Concurrency:        cfg.WorkerConcurrency,
	})
}
