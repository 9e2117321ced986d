package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without running it",
		Long: `Loads the configuration layers, checks the daemon settings and the pipeline
graph, and checks every element's settings against its type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.configs) == 0 {
				return errors.WrapInvalid(errors.ErrMissingConfig, "olsd", "validate", "no configuration file given (-c)")
			}
			cfg, err := loadConfig(opts.configs)
			if err != nil {
				return err
			}
			rt, err := catalogRuntime()
			if err != nil {
				return err
			}
			failures, err := cfg.CheckElements(rt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(failures) > 0 {
				for _, f := range failures {
					fmt.Fprintf(out, "  %s\n", f)
				}
				return errors.WrapInvalid(errors.ErrInvalidSetting, "olsd", "validate",
					fmt.Sprintf("%d element setting(s) failed", len(failures)))
			}
			fmt.Fprintf(out, "Configuration is valid (%d elements, %d links)\n",
				len(cfg.Pipeline.Elements), len(cfg.Pipeline.Links))
			return nil
		},
	}
}
