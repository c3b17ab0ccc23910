package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <profile-id> <question...>",
	Short: "Ask a question about a profile's memories",
	Long: `Ask a question grounded in a profile's extracted memories.

The answer only draws on uploaded media; when nothing relevant was
uploaded, the answer is "I don't know."

Examples:
  heirloom ask grandma where was the wedding
  heirloom ask grandma "What did she write about Vienna?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	profileID := args[0]
	question := strings.Join(args[1:], " ")

	result, err := apiClient.Ask(ctx, profileID, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Println(result.AnswerText)
	if len(result.SourceURLs) > 0 {
		fmt.Println("\nSources:")
		for _, url := range result.SourceURLs {
			fmt.Printf("  %s\n", url)
		}
	}
	return nil
}
