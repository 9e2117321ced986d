package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/config"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/elementregistry"
)

// rootOptions holds the persistent flags
type rootOptions struct {
	configs   []string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "olsd runs log stream analysis pipelines",
		Long:          `olsd builds a graph of source, process and output elements from a configuration file and streams data through it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var defaultConfigs []string
	if env := os.Getenv("OLS_CONFIG"); env != "" {
		defaultConfigs = strings.Split(env, ",")
	}
	cmd.PersistentFlags().StringArrayVarP(&opts.configs, "config", "c", defaultConfigs,
		"Configuration file, repeat to layer files (env: OLS_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides log.level)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"Log format: json, text (overrides log.format)")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newTypesCmd(),
		newPropsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig merges the configured layers over the defaults
func loadConfig(paths []string) (*config.Config, error) {
	loader := config.NewLoader()
	for _, p := range paths {
		loader.AddLayer(p)
	}
	loader.EnableValidation(true)
	return loader.Load()
}

// catalogRuntime returns a runtime with every built-in type registered and
// no shared resources, for introspection commands
func catalogRuntime() (*element.Runtime, error) {
	rt := element.NewRuntime()
	if err := elementregistry.Register(rt, elementregistry.Dependencies{}); err != nil {
		return nil, err
	}
	return rt, nil
}
