package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load configuration and models, report which services would start",
	Long: `Validates the configuration and loads every enabled service the same way
serve does, without opening a listener. Exits non-zero when an enabled
service fails to initialize.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, status, closeStore, err := bootstrap(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	failed := 0
	for _, s := range status {
		switch {
		case !s.Enabled:
			fmt.Fprintf(out, "%-9s disabled\n", s.Name)
		case s.Err != nil:
			failed++
			fmt.Fprintf(out, "%-9s FAILED  %v\n", s.Name, s.Err)
		default:
			fmt.Fprintf(out, "%-9s ok\n", s.Name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d service(s) failed to initialize", failed)
	}
	return nil
}
