package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/espalier/internal/adapters"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved drafts",
	Long:  `List, inspect, and delete wizard drafts stored in .espalier/drafts.`,
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all saved drafts",
	Run: func(cmd *cobra.Command, args []string) {
		store := getDraftStore(cmd)
		drafts, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing drafts: %v\n", err)
			os.Exit(1)
		}

		if len(drafts) == 0 {
			fmt.Println("No saved drafts found.")
			return
		}

		fmt.Println("Saved Drafts:")
		for _, d := range drafts {
			fmt.Println("- " + d)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <draft-id>",
	Short: "Inspect the contents of a draft",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		draftID := args[0]
		store := getDraftStore(cmd)

		draft, err := store.Load(cmd.Context(), draftID)
		if err != nil {
			fmt.Printf("Error loading draft '%s': %v\n", draftID, err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(draft, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling draft: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:     "delete <draft-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete one or more drafts",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getDraftStore(cmd)
		hasError := false

		for _, draftID := range args {
			if err := store.Delete(cmd.Context(), draftID); err != nil {
				fmt.Printf("Error deleting '%s': %v\n", draftID, err)
				hasError = true
			} else {
				fmt.Printf("Deleted draft '%s'\n", draftID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)

	sessionCmd.PersistentFlags().String("store", "", "Directory holding the draft store (default: working directory)")
}

func getDraftStore(cmd *cobra.Command) *adapters.FileStore {
	dir, _ := cmd.Flags().GetString("store")
	if dir == "" {
		dir = "."
	}
	return adapters.NewFileStore(filepath.Join(dir, ".espalier", "drafts"))
}
