package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"framepickr/internal/model"
	"framepickr/internal/repository/sqlite"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Gray{Y: 200})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestCollectCandidates(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"))
	writePNG(t, filepath.Join(dir, "a.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a photo"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	single := filepath.Join(t.TempDir(), "z.png")
	writePNG(t, single)

	candidates, err := collectCandidates([]string{single, dir})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for i, name := range []string{"z.png", "a.png", "b.png"} {
		assert.Equal(t, i, candidates[i].Index)
		assert.Equal(t, name, candidates[i].Filename)
		assert.NotEmpty(t, candidates[i].Data)
	}
}

func TestCollectCandidatesMissingPath(t *testing.T) {
	_, err := collectCandidates([]string{filepath.Join(t.TempDir(), "missing.jpg")})
	assert.Error(t, err)
}

func TestHistoryOutput(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()
	repo := sqlite.NewSelectionRepository(db)

	require.NoError(t, repo.InsertBatch(
		&model.Batch{ID: "batch-42", CreatedAt: time.Now(), CandidateCount: 4, ScoredCount: 3, FailedCount: 1, TopN: 2},
		[]model.Selection{
			{Rank: 1, Filename: "best.jpg", PersistedName: "best_x.jpg", Locator: "/uploads/best_x.jpg", Score: 2.25},
			{Rank: 2, Filename: "next.jpg", PersistedName: "next_y.jpg", PersistError: "disk full"},
		},
	))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, listBatches(cmd, repo, 10))
	assert.Contains(t, out.String(), "batch-42")

	out.Reset()
	require.NoError(t, showBatch(cmd, repo, "batch-42"))
	assert.Contains(t, out.String(), "best.jpg")
	assert.Contains(t, out.String(), "/uploads/best_x.jpg")
	assert.Contains(t, out.String(), "error: disk full")

	assert.Error(t, showBatch(cmd, repo, "unknown"))
}

func TestRootRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("RESIZE_QUALITY_STEP", "0")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	assert.ErrorContains(t, err, "RESIZE_QUALITY_STEP")
}
