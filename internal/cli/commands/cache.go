package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/docinsight/internal/cache"
	"github.com/cloo-solutions/docinsight/internal/config"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/spf13/cobra"
)

// cacheOpener returns the manager the cache commands operate on.
type cacheOpener func(ctx context.Context) (*cache.Manager, error)

func openSharedCache(ctx context.Context) (*cache.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDynamoDB() {
		return nil, errors.New("cache commands need a shared cache: set DOCINSIGHT_DYNAMODB_ENDPOINT or AWS credentials")
	}
	store, err := openDynamoDBStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewManager(store, cache.Config{TTL: cfg.CacheTTL}), nil
}

type cacheEntryOutput struct {
	DocumentID  string          `json:"document_id"`
	Prompt      string          `json:"prompt"`
	ExtractedAt string          `json:"extracted_at"`
	ExpiresAt   string          `json:"expires_at"`
	ModelID     string          `json:"model_id"`
	ChunkCount  int             `json:"chunk_count"`
	Insights    domain.Insights `json:"insights"`
}

func toCacheEntryOutput(e *domain.CacheEntry) cacheEntryOutput {
	return cacheEntryOutput{
		DocumentID:  e.DocumentID,
		Prompt:      e.Prompt,
		ExtractedAt: e.ExtractedAt().UTC().Format(time.RFC3339),
		ExpiresAt:   time.Unix(e.ExpiresAt, 0).UTC().Format(time.RFC3339),
		ModelID:     e.ModelID,
		ChunkCount:  e.ChunkCount,
		Insights:    e.Insights,
	}
}

// CacheCmd inspects and clears cached insights.
func CacheCmd() *cobra.Command {
	return newCacheCmd(openSharedCache)
}

func newCacheCmd(open cacheOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate cached insights",
	}

	cmd.AddCommand(newCacheListCmd(open))
	cmd.AddCommand(newCacheGetCmd(open))
	cmd.AddCommand(newCacheInvalidateCmd(open))

	return cmd
}

func newCacheListCmd(open cacheOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list <document-id>",
		Aliases: []string{"ls"},
		Short:   "List live cached insights for a document, newest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			m, err := open(cmd.Context())
			if err != nil {
				return err
			}

			entries := m.GetAllInsights(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if format == outputJSON {
				items := make([]cacheEntryOutput, len(entries))
				for i := range entries {
					items[i] = toCacheEntryOutput(&entries[i])
				}
				return writeJSON(out, items)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "no cached insights for %s\n", args[0])
				return nil
			}
			for i := range entries {
				e := toCacheEntryOutput(&entries[i])
				fmt.Fprintf(out, "%s  %s  %q\n", e.ExtractedAt, e.ModelID, e.Prompt)
			}
			return nil
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newCacheGetCmd(open cacheOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show the cached insights for one prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			prompt, _ := cmd.Flags().GetString("prompt")

			m, err := open(cmd.Context())
			if err != nil {
				return err
			}

			entry, ok := m.CheckCache(cmd.Context(), args[0], prompt)
			if !ok {
				return fmt.Errorf("no cached insights for %s with that prompt", args[0])
			}

			e := toCacheEntryOutput(entry)
			out := cmd.OutOrStdout()
			if format == outputJSON {
				return writeJSON(out, e)
			}

			fmt.Fprintf(out, "Prompt:     %s\n", e.Prompt)
			fmt.Fprintf(out, "Extracted:  %s (expires %s)\n", e.ExtractedAt, e.ExpiresAt)
			fmt.Fprintf(out, "Model:      %s over %d chunks\n", e.ModelID, e.ChunkCount)
			fmt.Fprintf(out, "Confidence: %.2f\n\n", e.Insights.Confidence)
			fmt.Fprintf(out, "Summary:\n  %s\n", e.Insights.Summary)
			if e.Insights.Answer != "" {
				fmt.Fprintf(out, "Answer:\n  %s\n", e.Insights.Answer)
			}
			if len(e.Insights.KeyPoints) > 0 {
				fmt.Fprintln(out, "Key points:")
				for _, p := range e.Insights.KeyPoints {
					fmt.Fprintf(out, "  - %s\n", p)
				}
			}
			if len(e.Insights.Entities) > 0 {
				fmt.Fprintln(out, "Entities:")
				for _, ent := range e.Insights.Entities {
					fmt.Fprintf(out, "  - %s (%s)\n", ent.Name, ent.Type)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("prompt", "", "Exact prompt the insights were extracted for")
	_ = cmd.MarkFlagRequired("prompt")
	addOutputFlag(cmd)
	return cmd
}

func newCacheInvalidateCmd(open cacheOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <document-id>",
		Short: "Delete every cached insight for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd.Context())
			if err != nil {
				return err
			}
			n := m.InvalidateCache(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached insights for %s\n", n, args[0])
			return nil
		},
	}
}
