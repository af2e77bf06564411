package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/grovekit/grove/db"
	"github.com/grovekit/grove/internal/app"
	"github.com/grovekit/grove/internal/blob"
	"github.com/grovekit/grove/internal/config"
	"github.com/grovekit/grove/internal/ingest"
	"github.com/grovekit/grove/internal/store"
)

var ingestOwner string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner id the documents belong to (required)")
	_ = ingestCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, paths []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range paths {
		resp, err := ingestFile(ctx, a, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("%s: document %s %s (%d chunks", path, resp.DocumentID, resp.Status, resp.ChunkCount)
		if resp.DegradedChunks > 0 {
			fmt.Printf(", %d degraded", resp.DegradedChunks)
		}
		fmt.Println(")")
	}
	return nil
}

// ingestFile uploads one local file into the blob store and runs the
// pipeline on it, mirroring what the HTTP upload endpoint does.
func ingestFile(ctx context.Context, a *app.App, path string) (ingest.Response, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's own command line
	if err != nil {
		return ingest.Response{}, err
	}

	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	docID := uuid.NewString()
	loc := blob.Locator{Bucket: "uploads", Key: ingestOwner + "/" + docID + "/" + name}

	if err := a.Blobs.Upload(ctx, loc, data, mimeType); err != nil {
		return ingest.Response{}, fmt.Errorf("uploading to blob store: %w", err)
	}
	if err := a.Store.CreateDocument(ctx, store.Document{
		ID:          docID,
		OwnerID:     ingestOwner,
		DisplayName: name,
		MimeType:    mimeType,
		Status:      store.StatusUploaded,
		Bucket:      loc.Bucket,
		Key:         loc.Key,
	}); err != nil {
		return ingest.Response{}, fmt.Errorf("recording document: %w", err)
	}

	return a.Ingestor.Run(ctx, ingest.Request{
		OwnerID:     ingestOwner,
		DocumentID:  docID,
		DisplayName: name,
		MimeType:    mimeType,
		Locator:     loc,
	})
}
