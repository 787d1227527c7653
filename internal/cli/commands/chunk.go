package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/config"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/extract"
	"github.com/cloo-solutions/docinsight/internal/service"
	"github.com/spf13/cobra"
)

type chunkOutput struct {
	DocumentID string         `json:"document_id"`
	Source     string         `json:"source"`
	Pages      int            `json:"pages"`
	Count      int            `json:"count"`
	Chunks     []domain.Chunk `json:"chunks"`
}

// ChunkCmd splits a local PDF or text file the same way indexing does,
// without touching any external service.
func ChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split a local document into chunks",
		Long: `Extract text from a PDF or plain-text file, group its pages into batches
and split each batch into overlapping chunks. Text files separate pages with
form feeds.`,
		Example: `  docinsightd chunk report.pdf
  docinsightd chunk notes.txt --max-units 500 --overlap-units 50 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runChunk,
	}

	cmd.Flags().String("document-id", "", "Document id recorded in chunk metadata (default: file name without extension)")
	cmd.Flags().Int("max-units", chunking.DefaultMaxUnitsPerChunk, "Maximum approximate tokens per chunk")
	cmd.Flags().Int("overlap-units", chunking.DefaultOverlapUnits, "Approximate tokens shared by consecutive chunks")
	cmd.Flags().Int("chars-per-unit", chunking.DefaultCharsPerUnit, "Characters counted as one token")
	cmd.Flags().Int("pages-per-batch", extract.DefaultPagesPerBatch, "Pages chunked together")
	addOutputFlag(cmd)

	return cmd
}

// chunkSettings starts from the environment and applies any flag the user set.
func chunkSettings(cmd *cobra.Command) (service.DocumentServiceConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return service.DocumentServiceConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings := service.DocumentServiceConfig{
		Chunking:      chunkingConfig(cfg),
		PagesPerBatch: cfg.PagesPerBatch,
	}

	flags := []struct {
		name string
		dst  *int
	}{
		{"max-units", &settings.Chunking.MaxUnitsPerChunk},
		{"overlap-units", &settings.Chunking.OverlapUnits},
		{"chars-per-unit", &settings.Chunking.CharsPerUnit},
		{"pages-per-batch", &settings.PagesPerBatch},
	}
	for _, f := range flags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, _ := cmd.Flags().GetInt(f.name)
		if v < 0 {
			return settings, fmt.Errorf("--%s cannot be negative", f.name)
		}
		*f.dst = v
	}
	return settings, nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	settings, err := chunkSettings(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	pages, err := extract.Pages(data, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}

	documentID, _ := cmd.Flags().GetString("document-id")
	if documentID == "" {
		base := filepath.Base(path)
		documentID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	docs := service.NewDocumentService(NoOpDocumentStorage{}, NoOpIndexingJobs{}, NoOpChunkIndex{}, NoOpModel{}, nil, settings)
	chunks := docs.ChunkPages(documentID, pages)

	out := cmd.OutOrStdout()
	if format == outputJSON {
		if chunks == nil {
			chunks = []domain.Chunk{}
		}
		return writeJSON(out, chunkOutput{
			DocumentID: documentID,
			Source:     path,
			Pages:      len(pages),
			Count:      len(chunks),
			Chunks:     chunks,
		})
	}

	estimator := chunking.New(settings.Chunking)
	for _, c := range chunks {
		fmt.Fprintf(out, "=== chunk %d  pages %s  %d chars  ~%d units ===\n",
			c.Metadata.ChunkIndex, c.Metadata.PageRange, len([]rune(c.Text)), estimator.EstimateUnits(c.Text))
		fmt.Fprintln(out, c.Text)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%s: %d pages, %d chunks\n", documentID, len(pages), len(chunks))
	return nil
}
