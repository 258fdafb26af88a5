package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the prompt cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached prompt counts per tokenizer",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [tokenizer...]",
	Short: "Drop cached prompts, for the given tokenizers or all of them",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, err := openBoltStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Prompt cache: %s\n", GetConfig().CacheDBPath(GetRootDir()))
	if len(stats) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return nil
	}
	total := 0
	for _, s := range stats {
		fmt.Fprintf(out, "  %-40s %d\n", s.ModelID, s.Prompts)
		total += s.Prompts
	}
	fmt.Fprintf(out, "  %-40s %d\n", "total", total)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, err := openBoltStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		if err := st.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Prompt cache cleared")
		return nil
	}

	presets := newResolver().Presets()
	for _, handle := range args {
		id := presets.Lookup(handle)
		if err := st.DeleteModel(id); err != nil {
			return fmt.Errorf("clear %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", id)
	}
	return nil
}
