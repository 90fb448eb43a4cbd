package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parisxmas/formdesk/internal/export"
	"github.com/parisxmas/formdesk/internal/gateway"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

func (c *cli) submissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "submissions",
		Aliases: []string{"subs"},
		Short:   "Review, triage and export submissions",
	}
	cmd.AddCommand(c.subsListCmd(), c.subsRowsCmd(), c.subsStatusCmd(), c.subsDeleteCmd(), c.subsExportCmd())
	return cmd
}

func (c *cli) subsListCmd() *cobra.Command {
	var f struct {
		status string
		query  string
		skip   int
		limit  int
	}
	cmd := &cobra.Command{
		Use:   "list <formId>",
		Short: "List submissions of a form, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.client().ListSubmissionsPage(cmd.Context(), args[0], gateway.ListFilter{
				Status: models.Status(f.status),
				Query:  f.query,
				Skip:   f.skip,
				Limit:  f.limit,
			})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSUBMITTED")
			for _, s := range page.Submissions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Status, s.CreatedAt.UTC().Format(export.DateLayout))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%d of %d\n", len(page.Submissions), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.status, "status", "", "only this status (NEW, ON_HOLD, RESOLVED, PARTIAL)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "match answers or questions")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "skip this many submissions")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "show at most this many (0 = all)")
	return cmd
}

func (c *cli) subsRowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rows <formId>",
		Short: "Print every submission of a form as labelled answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw := c.client()
			form, err := gw.GetForm(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			subs, err := gw.ListSubmissions(cmd.Context(), form.ID)
			if err != nil {
				return err
			}
			schema := form.Schema()
			for i, s := range subs {
				if i > 0 {
					fmt.Fprintln(c.out)
				}
				fmt.Fprintf(c.out, "== %s  %s  %s\n", s.ID, s.Status, s.CreatedAt.UTC().Format(export.DateLayout))
				tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				for _, row := range resolver.Resolve(s.Data, schema) {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Label, row.Type(), row.DisplayValue)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *cli) subsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the status of a submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().UpdateSubmissionStatus(cmd.Context(), args[0], models.Status(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func (c *cli) subsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a submission for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().DeleteSubmission(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) subsExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <formId>",
		Short: "Write the submissions of a form as CSV",
		Long: `Write the submissions of a form as CSV.

Columns are Date, Status and the data keys of the newest submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := c.client().ListSubmissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				if err := export.WriteCSV(c.out, subs); err != nil {
					return err
				}
				_, err := fmt.Fprintln(c.out)
				return err
			}
			if err := os.WriteFile(output, []byte(export.CSV(subs)), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %d submissions to %s\n", len(subs), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
