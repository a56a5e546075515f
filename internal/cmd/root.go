package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	fChdir      string
	fConfigFile string
	fLog        bool
	fLogFile    string
	fVerbose    bool
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "diagrammer",
		Short:         "Edit, render and convert mermaid diagrams",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if fChdir == "" || fChdir == "." {
				return nil
			}
			return errors.Wrap(os.Chdir(fChdir), "failed to change the working directory")
		},
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&fChdir, "chdir", ".", "Switch to a different working directory before executing the command.")
	pflags.StringVarP(&fConfigFile, "config", "c", "", "Path to a configuration file. By default diagrammer.yaml files are looked up from the working directory.")
	pflags.BoolVar(&fLog, "log", false, "Enable logging.")
	pflags.StringVar(&fLogFile, "log-file", "", "Write logs to a file instead of stderr.")
	pflags.BoolVar(&fVerbose, "verbose", false, "Verbose logging. Implies --log.")

	cmd.AddCommand(detectCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(labelsCmd())
	cmd.AddCommand(renameCmd())
	cmd.AddCommand(renderCmd())
	cmd.AddCommand(sanitizeCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(templatesCmd())
	cmd.AddCommand(watchCmd())

	return &cmd
}
