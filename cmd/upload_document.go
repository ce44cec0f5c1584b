/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdf-chat-be/service"
	"github.com/tieubaoca/pdf-chat-be/types"
)

// uploadDocumentCmd represents the upload-document command
var uploadDocumentCmd = &cobra.Command{
	Use:   "upload-document",
	Short: "Ingest one PDF file into the vector store",
	Long: `Parses, chunks and embeds a PDF file and stores the chunks in the
configured vector store. The document is named after the file's base name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")
		if filePath == "" {
			return errors.New("--file is required")
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requirePersistentStore(); err != nil {
			return err
		}

		res, err := ingestFile(cmd.Context(), a.ingest, filePath)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s: %d pages, %d chunks\n", res.Filename, res.PagesProcessed, res.ChunksProcessed)
		for _, page := range res.Pages {
			if page.Err != nil {
				fmt.Printf("  skipped page %d: %v\n", page.Page, page.Err)
			}
		}
		return nil
	},
}

func ingestFile(ctx context.Context, ingest *service.IngestService, filePath string) (*types.UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.Ingest(ctx, filepath.Base(filePath), f)
}

func init() {
	rootCmd.AddCommand(uploadDocumentCmd)
	uploadDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to upload")
}
