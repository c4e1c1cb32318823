package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var dirs, files, inline []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments loaded from -d/-f/-j",
		RunE: func(cmd *cobra.Command, args []string) error {
			exps, err := loadExperiments(dirs, files, inline)
			if err != nil {
				return err
			}
			if len(exps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no experiments loaded")
				return nil
			}
			for _, exp := range exps {
				container := exp.Container()
				if container == "" {
					container = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tinputs=%v\tcontainer=%s\n", exp.Name(), exp.Input().Names(), container)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&dirs, "directory", "d", nil, "load every *.experiment.json file in DIR (repeatable)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "load one experiment JSON file (repeatable)")
	cmd.Flags().StringArrayVarP(&inline, "json", "j", nil, "load one experiment from inline JSON (repeatable)")
	return cmd
}
