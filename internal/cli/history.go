package cli

import (
	"fmt"
	"text/tabwriter"

	"framepickr/internal/dto"
	"framepickr/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyID    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded batches, or the selections of one batch with --id",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open selection history: %w", err)
		}
		defer db.Close()
		repo := sqlite.NewSelectionRepository(db)

		if historyID != "" {
			return showBatch(cmd, repo, historyID)
		}
		return listBatches(cmd, repo, historyLimit)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of batches to list")
	historyCmd.Flags().StringVar(&historyID, "id", "", "show the selections of this batch")
}

func listBatches(cmd *cobra.Command, repo *sqlite.SelectionRepository, limit int) error {
	batches, err := repo.GetBatches(&dto.BatchFilter{Limit: limit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BATCH\tCREATED\tIMAGES\tSCORED\tFAILED\tTOP")
	fmt.Fprintln(w, "-----\t-------\t------\t------\t------\t---")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.CandidateCount, b.ScoredCount, b.FailedCount, b.TopN)
	}
	return w.Flush()
}

func showBatch(cmd *cobra.Command, repo *sqlite.SelectionRepository, id string) error {
	batch, err := repo.GetBatch(id)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("batch %s not found", id)
	}
	selections, err := repo.GetSelectionsByBatchID(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s (%s): %d image(s), top %d\n\n",
		batch.ID, batch.CreatedAt.Local().Format("2006-01-02 15:04"), batch.CandidateCount, batch.TopN)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RANK\tFILE\tSCORE\tLOCATION")
	fmt.Fprintln(w, "----\t----\t-----\t--------")
	for _, s := range selections {
		location := s.Locator
		if s.PersistError != "" {
			location = "error: " + s.PersistError
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%s\n", s.Rank, s.Filename, s.Score, location)
	}
	return w.Flush()
}
