package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) formsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "List and inspect forms",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forms, err := c.client().ListForms(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSLUG\tPUBLISHED\tFIELDS")
			for _, f := range forms {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", f.ID, f.Name, f.Slug, f.Published, len(f.Fields))
			}
			return tw.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a form with its fields as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := c.client().GetForm(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(form)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
