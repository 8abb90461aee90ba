package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"framepickr/internal/dto"
	"framepickr/internal/model"
	"framepickr/internal/repository"
	"framepickr/internal/repository/sqlite"
	"framepickr/internal/service/metrics"
	"framepickr/internal/service/pipeline"
	"framepickr/internal/service/preprocess"
	"framepickr/internal/service/scoring"
	"framepickr/internal/service/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type scoreOptions struct {
	TopN      int
	OutDir    string
	JSON      bool
	DryRun    bool
	NoHistory bool
}

var scoreOpts scoreOptions

var scoreCmd = &cobra.Command{
	Use:   "score [files or directories...]",
	Short: "Score photos and save the best ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(cmd, args, scoreOpts)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().IntVarP(&scoreOpts.TopN, "top", "n", 0, "number of images to keep (default: DEFAULT_TOP_N)")
	scoreCmd.Flags().StringVarP(&scoreOpts.OutDir, "out", "o", "", "directory the selected images are copied to (default: UPLOAD_DIR)")
	scoreCmd.Flags().BoolVar(&scoreOpts.JSON, "json", false, "print the batch report as JSON")
	scoreCmd.Flags().BoolVar(&scoreOpts.DryRun, "dry-run", false, "score only, save nothing")
	scoreCmd.Flags().BoolVar(&scoreOpts.NoHistory, "no-history", false, "do not record the batch in the selection history")
}

func runScore(cmd *cobra.Command, args []string, opts scoreOptions) error {
	ctx := cmd.Context()

	topN := opts.TopN
	if topN == 0 {
		topN = cfg.DefaultTopN
	}
	if topN < 1 {
		return fmt.Errorf("--top must be at least 1")
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = cfg.UploadDirectory
	}

	candidates, err := collectCandidates(args)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no images found in %s", strings.Join(args, ", "))
	}

	cascades, err := metrics.LoadCascadeSets(metrics.ModelPathsFromConfig(cfg), min(cfg.ProcessingWorkers, len(candidates)))
	if err != nil {
		return err
	}
	defer func() {
		for _, set := range cascades {
			set.Close()
		}
	}()
	extractors := make([]*metrics.Extractor, 0, len(cascades))
	for _, set := range cascades {
		extractors = append(extractors, metrics.NewExtractor(set, log))
	}

	backend, err := storage.NewLocalBackend(outDir, outDir)
	if err != nil {
		return err
	}

	var history *sqlite.SelectionRepository
	if !opts.DryRun && !opts.NoHistory {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open selection history: %w", err)
		}
		defer db.Close()
		history = sqlite.NewSelectionRepository(db)
	}

	bar := newProgressBar(len(candidates), opts.JSON)

	orchestrator := pipeline.NewOrchestrator(
		extractors,
		preprocess.NewPreprocessor(cfg, log),
		scoring.NewCombiner(cfg.Scoring),
		storage.NewPersister(backend, cfg, log),
		nil,
		historyOrNil(history),
		bar,
		cfg,
		log,
	)

	run := orchestrator.Run
	if opts.DryRun {
		run = orchestrator.Score
	}
	result, err := run(ctx, candidates, topN)
	bar.Finish()
	if err != nil {
		return err
	}

	report := dto.NewBatchReport(result)
	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd, report)
	return nil
}

// collectCandidates expands directories into the images they contain.
// Order follows the arguments, then file name within a directory.
func collectCandidates(args []string) ([]model.ImageCandidate, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(arg, name)
			mtype, err := mimetype.DetectFile(path)
			if err != nil || !strings.HasPrefix(mtype.String(), "image/") {
				continue
			}
			paths = append(paths, path)
		}
	}

	candidates := make([]model.ImageCandidate, 0, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, model.ImageCandidate{
			Index:    i,
			Filename: filepath.Base(path),
			Data:     data,
		})
	}
	return candidates, nil
}

func printReport(cmd *cobra.Command, report dto.BatchReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s: %d image(s), %d scored, %d failed\n\n",
		report.BatchID, report.Count, len(report.All), len(report.Errors))

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RANK\tFILE\tSCORE\tSHARPNESS\tBRIGHTNESS\tFACES\tSAVED AS")
	fmt.Fprintln(w, "----\t----\t-----\t---------\t----------\t-----\t--------")
	for i, item := range report.Top {
		saved := item.Locator
		if item.PersistError != "" {
			saved = "error: " + item.PersistError
		}
		if item.SimilarTo != "" {
			saved += " (similar to " + item.SimilarTo + ")"
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.1f\t%.1f\t%d\t%s\n",
			i+1, item.Filename, item.Score, item.Sharpness, item.Brightness, item.FaceCount, saved)
	}
	w.Flush()

	for _, f := range report.Errors {
		fmt.Fprintf(out, "skipped %s: %s\n", f.Filename, f.Reason)
	}
}

// progressNotifier advances a progress bar once per scored or failed image.
type progressNotifier struct {
	bar   *progressbar.ProgressBar
	quiet bool
}

func newProgressBar(total int, quiet bool) *progressNotifier {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription("📷 Scoring"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	}
	if quiet {
		opts = append(opts, progressbar.OptionSetVisibility(false))
	}
	return &progressNotifier{bar: progressbar.NewOptions(total, opts...), quiet: quiet}
}

func (p *progressNotifier) Publish(event dto.ProgressEvent) {
	switch event.Stage {
	case model.StageScored, model.StageFailed:
		p.bar.Add(1)
	}
}

func (p *progressNotifier) Finish() {
	p.bar.Finish()
	if !p.quiet {
		fmt.Fprintln(os.Stderr)
	}
}

// historyOrNil keeps a missing repository a nil interface.
func historyOrNil(r *sqlite.SelectionRepository) repository.SelectionRepository {
	if r == nil {
		return nil
	}
	return r
}
