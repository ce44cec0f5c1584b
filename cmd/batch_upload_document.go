/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// batchUploadDocumentCmd represents the batch-upload-document command
var batchUploadDocumentCmd = &cobra.Command{
	Use:   "batch-upload-document",
	Short: "Ingest every PDF file of a directory",
	Long: `Ingests the .pdf files found directly inside --directory, several at a
time. A file that fails is reported and does not stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		directory, _ := cmd.Flags().GetString("directory")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if directory == "" {
			return errors.New("--directory is required")
		}
		if concurrency < 1 {
			concurrency = 1
		}

		files, err := utils.ListPDFFiles(directory)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No PDF files found in", directory)
			return nil
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requirePersistentStore(); err != nil {
			return err
		}

		var failed atomic.Int32
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(concurrency)
		for _, filePath := range files {
			g.Go(func() error {
				res, err := ingestFile(ctx, a.ingest, filePath)
				if err != nil {
					failed.Add(1)
					a.logger.Error("failed to upload document", zap.String("file", filePath), zap.Error(err))
					return nil
				}
				fmt.Printf("Uploaded %s: %d pages, %d chunks\n", res.Filename, res.PagesProcessed, res.ChunksProcessed)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Done: %d uploaded, %d failed\n", len(files)-int(failed.Load()), failed.Load())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchUploadDocumentCmd)
	batchUploadDocumentCmd.Flags().String("directory", "", "Path to the dir to upload")
	batchUploadDocumentCmd.Flags().IntP("concurrency", "n", 4, "Number of files ingested at the same time")
}
