package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/callwarden/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate [rules-file]",
	Short: "Validate an unwanted method rule file",
	Long: `Validate parses a rule file and prints the compiled rules. Without an
argument it validates the configured or discovered rule file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.RulesFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = rules.DiscoverConfigFile(".")
	}
	if path == "" {
		return fmt.Errorf("no rule file given and no %s.{json,yaml,yml} found", rules.ConfigFileName)
	}

	rs, err := rules.LoadFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d rule(s), digest %s\n", path, rs.Len(), rs.Digest())
	for i, r := range rs.Rules() {
		fmt.Fprintf(out, "  [%d] %s", i, r.Qualified())
		if r.Reason != "" {
			fmt.Fprintf(out, " (%s)", r.Reason)
		}
		if excluded := r.ExcludedCallers(); len(excluded) > 0 {
			fmt.Fprintf(out, " excluded: %s", strings.Join(excluded, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
