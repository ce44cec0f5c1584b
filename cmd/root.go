/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdf-chat-be/config"
	"github.com/tieubaoca/pdf-chat-be/database"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pdf-chat-be",
	Short: "Ask questions about uploaded PDF documents",
	Long: `pdf-chat-be ingests PDF documents into a vector store and answers
questions about them with a language model grounded on the closest passages.

Run "pdf-chat-be start" to serve the HTTP API. With --reinit the Weaviate
class holding the chunks is dropped and recreated empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reinit, _ := cmd.Flags().GetBool("reinit")
		if !reinit {
			return cmd.Help()
		}

		cfg, logger, err := loadConfigAndLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cfg.VectorStore.Backend != config.BackendWeaviate {
			return fmt.Errorf("--reinit needs the weaviate vector store, configured backend is %q", cfg.VectorStore.Backend)
		}

		store, err := database.NewWeaviateStore(cmd.Context(), cfg.VectorStore.Weaviate, logger)
		if err != nil {
			return err
		}
		if err := store.ReInit(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Recreated Weaviate class", cfg.VectorStore.Weaviate.Class)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file")
	rootCmd.Flags().BoolP("reinit", "r", false, "Drop and recreate the Weaviate class")
}
