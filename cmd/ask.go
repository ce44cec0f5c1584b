/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.rag.Answer(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(res.Answer)
		if len(res.Sources) > 0 {
			fmt.Println()
			fmt.Println("Sources:")
			for _, s := range res.Sources {
				fmt.Println("  -", s)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
