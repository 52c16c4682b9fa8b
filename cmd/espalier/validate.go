package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/espalier"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a wizard definition for consistency",
	Long:  `Parses the definition file and compiles it: unique step IDs, parseable predicates, known rule targets and an acyclic default-rule graph.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	def, err := loadDefinition(cmd, args)
	if err != nil {
		return err
	}

	// Compiling exercises every static check the engine performs at startup.
	if _, err := espalier.New(def); err != nil {
		return err
	}
	return nil
}
