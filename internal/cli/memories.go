package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var memoriesCmd = &cobra.Command{
	Use:   "memories <profile-id>",
	Short: "List a profile's extracted memories",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemories,
}

func init() {
	rootCmd.AddCommand(memoriesCmd)
}

func runMemories(cmd *cobra.Command, args []string) error {
	memories, err := apiClient.ListMemories(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}

	if len(memories) == 0 {
		fmt.Println("No memories found")
		return nil
	}

	fmt.Printf("%-28s %-24s %-10s %s\n", "ID", "TITLE", "TYPE", "KEYWORDS")
	fmt.Println(strings.Repeat("-", 88))
	for _, m := range memories {
		title := m.Title
		if len(title) > 24 {
			title = title[:21] + "..."
		}
		fmt.Printf("%-28s %-24s %-10s %s\n", m.ID, title, m.EventType, strings.Join(m.Keywords, ", "))
	}
	return nil
}
