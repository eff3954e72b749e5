package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewCmdConfig(out io.Writer, config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doConfig(out, config)
		},
	}
}

// doConfig renders the merged configuration (defaults, file, environment)
// in the same TOML form a configuration file would use.
func doConfig(out io.Writer, config *Config) error {
	_, err := fmt.Fprintf(out, "%s", config)
	return err
}
