package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/internal/presentation/tui"
	"github.com/verdantlabs/espalier/pkg/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a wizard interactively",
	Long:  `Starts the wizard from the given definition file and walks through its steps on the terminal. Drafts are autosaved; interrupted runs can be resumed with --resume.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWizard(cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("resume", "", "Draft ID to resume instead of starting fresh")
	runCmd.Flags().String("store", "", "Directory holding the draft store (default: working directory)")
	runCmd.Flags().String("redis", "", "Redis address for draft storage (overrides --store)")
	runCmd.Flags().Bool("plain", false, "Disable markdown rendering")
	runCmd.Flags().Bool("debug", false, "Enable debug logging to stderr")

	// Make 'run' the default if no command is provided.
	rootCmd.Run = runCmd.Run
}

func runWizard(cmd *cobra.Command, args []string) error {
	def, err := loadDefinition(cmd, args)
	if err != nil {
		return err
	}

	resumeID, _ := cmd.Flags().GetString("resume")
	storeDir, _ := cmd.Flags().GetString("store")
	redisAddr, _ := cmd.Flags().GetString("redis")
	plain, _ := cmd.Flags().GetBool("plain")
	debug, _ := cmd.Flags().GetBool("debug")

	logger := createLogger(debug)

	engine, err := espalier.New(def,
		espalier.WithStore(selectStore(storeDir, redisAddr)),
		espalier.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sess *espalier.Session
	if resumeID != "" {
		sess, err = engine.ResumeSession(ctx, resumeID)
		if err != nil {
			return fmt.Errorf("failed to resume draft %q: %w", resumeID, err)
		}
		fmt.Printf(">>> Resuming draft '%s' at step %d.\n", resumeID, sess.StepIndex()+1)
	} else {
		sess, err = engine.NewSession(ctx)
		if err != nil {
			return err
		}
		tui.PrintBanner(espalier.Version)
		fmt.Printf(">>> Draft '%s' active.\n", sess.DraftID())
	}

	opts := []runner.Option{runner.WithLogger(logger)}
	if !plain {
		opts = append(opts, runner.WithRenderer(tui.NewRenderer()))
	}

	artifact, err := runner.NewRunner(opts...).Run(ctx, engine, sess)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted: flush the draft so the run can be resumed.
			_ = sess.Close(context.Background())
			fmt.Printf("\n>>> Interrupted. Resume with --resume %s\n", sess.DraftID())
			return nil
		}
		return err
	}
	if artifact == nil {
		// Exited early: draft kept for resume.
		fmt.Printf(">>> Draft '%s' saved. Resume with --resume %s\n", sess.DraftID(), sess.DraftID())
		return nil
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
