package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"promptgen/config"
	"promptgen/internal/domain"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a promptgen.yaml with the default settings",
	Long: `Write promptgen.yaml into the project directory with every setting at its
default, and create the .promptgen data directory for the prompt cache and
downloaded tokenizers.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "replace an existing promptgen.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := GetRootDir()
	path := filepath.Join(dir, "promptgen.yaml")

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return &domain.OutputConflictError{Path: path}
		}
	}

	if err := config.EnsureDataDir(dir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
