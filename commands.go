package main

import (
	"fmt"
	"strconv"

	"screenerfetch/internal/app"
	"screenerfetch/internal/workbook"

	"github.com/spf13/cobra"
)

// appRunE adapts a function using the app to a cobra RunE.
func appRunE(c *cli, fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.load(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, a, args)
	}
}

func addCommands(root *cobra.Command, c *cli) {
	root.AddCommand(
		&cobra.Command{
			Use:   "fetch",
			Short: "Fetch screener rows and write them to the display file",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				res, err := a.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d of %d rows into %s\n", len(res.Rows), res.TotalCount, a.Store().DisplayFile())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "save",
			Short: "Fetch rows, open them in the text editor and save the rows marked with '+'",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				if _, err := a.Fetch(cmd.Context()); err != nil {
					return err
				}
				res, err := a.Save(cmd.Context())
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), res)
				return nil
			}),
		},
		&cobra.Command{
			Use:     "saveall",
			Aliases: []string{"sa"},
			Short:   "Fetch rows and save all of them",
			Args:    cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				if _, err := a.Fetch(cmd.Context()); err != nil {
					return err
				}
				res, err := a.SaveAll(cmd.Context())
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), res)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "run",
			Short: "Fetch, save every row and refresh the automatic copy",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				res, err := a.QuickRun(cmd.Context())
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), res)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "query",
			Short: "Edit the query of the current workbook",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				update, err := a.UpdateQuery(cmd.Context())
				if err != nil {
					return err
				}
				printQueryUpdate(cmd, update)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "headers",
			Short: "Edit the column header overrides of the current workbook",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				if err := a.UpdateHeaders(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Headers updated.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "market NAME",
			Short: "Set the market the query is sent to",
			Long:  "Set the market the query is sent to, a country name or 'global'. The value is not validated.",
			Args:  cobra.ExactArgs(1),
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
				return a.SetMarket(args[0])
			}),
		},
		&cobra.Command{
			Use:   "print",
			Short: "Print the query of the current workbook",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				return a.PrintQuery(cmd.OutOrStdout())
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the workbooks",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				return printWorkbooks(cmd.OutOrStdout(), a)
			}),
		},
		newWorkbookCommand(c),
		&cobra.Command{
			Use:   "update-date [START]",
			Short: "Rewrite the dates of column A in yyyy/mm/dd format",
			Args:  cobra.MaximumNArgs(1),
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
				start, err := startRow(args)
				if err != nil {
					return err
				}
				n, err := a.UpdateDate(start)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d dates.\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "update-nums [START]",
			Short: "Convert typed columns back to numbers",
			Args:  cobra.MaximumNArgs(1),
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
				start, err := startRow(args)
				if err != nil {
					return err
				}
				n, err := a.UpdateNums(start)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d cells.\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove-duplicates",
			Short: "Remove rows with the same date and symbol as an earlier row",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				removed, err := a.RemoveDuplicates()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicate rows.\n", len(removed))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "copy",
			Short: "Write the manual copy of the workbook",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				if err := a.Copy(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Copying was successful.")
				return nil
			}),
		},
		&cobra.Command{
			Use:       "export [txt|csv|json|all]",
			Short:     "Export the workbook into its data folder",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{"txt", "csv", "json", "all"},
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
				format := workbook.ExportAll
				if len(args) == 1 {
					f, err := workbook.ParseExportFormat(args[0])
					if err != nil {
						return err
					}
					format = f
				}
				files, err := a.Export(format)
				if err != nil {
					return err
				}
				printExported(cmd.OutOrStdout(), files)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "format",
			Short: "Replace the workbook with an empty one holding only the headers",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				if err := a.Format(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workbook %s formatted.\n", a.Session().Name())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a workbook folder and everything in it",
			Args:  cobra.ExactArgs(1),
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
				if err := a.DeleteWorkbook(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workbook %s deleted.\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "txt",
			Short: "Open the display file of the last fetch",
			Args:  cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				return a.OpenDisplay(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:     "excel",
			Aliases: []string{"e"},
			Short:   "Open the workbook in the spreadsheet program",
			Args:    cobra.NoArgs,
			RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, _ []string) error {
				return a.OpenWorkbook(cmd.Context())
			}),
		},
	)
}

func newWorkbookCommand(c *cli) *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "wb NAME",
		Short: "Select the workbook to work with",
		Args:  cobra.ExactArgs(1),
		RunE: appRunE(c, func(cmd *cobra.Command, a *app.App, args []string) error {
			res, err := a.ChangeWorkbook(args[0], create)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workbook %s %s.\n", args[0], res)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the workbook when it does not exist")
	return cmd
}

func printQueryUpdate(cmd *cobra.Command, update *app.QueryUpdate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Query updated: %d columns, market %s.\n", len(update.Columns), update.Market)
	if update.Reformatted {
		fmt.Fprintln(out, "Workbook was formatted for the new columns.")
	}
}

// startRow reads the optional start row argument. It defaults to 2.
func startRow(args []string) (int, error) {
	if len(args) == 0 || args[0] == "" {
		return 2, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, workbook.ErrInvalidStartRow
	}
	return n, nil
}
