package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"screenerfetch/internal/app"
	"screenerfetch/internal/workbook"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// oneShot holds the flags that run commands without the shell. They are applied in the order
// of the fields.
type oneShot struct {
	changeWorkbook string
	fetch          bool
	save           bool
	saveAll        bool
	autocopy       bool
	export         string
}

// cli carries what every command needs to build the app.
type cli struct {
	configPath string
	flags      oneShot
	app        *app.App
}

func main() {
	setupEnvironment()
	log.Debug().Msg("Starting application")

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "screenerfetch",
		Short: "Save TradingView screener rows to xlsx workbooks",
		Long: `screenerfetch fetches stock screener rows from TradingView, lets you pick rows by marking
them with '+' in a text file and saves them to an xlsx workbook.

Without flags or a subcommand it starts an interactive shell. The one-shot flags run in the order
--change-wb, --fetch, --save, --saveall, --autocopy, --export.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load(cmd.Context())
			if err != nil {
				return err
			}
			if c.hasOneShot(cmd) {
				return runOneShot(cmd.Context(), a, c.flags, cmd.OutOrStdout())
			}
			return newShell(a, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path of the config file (default config.toml next to the executable)")

	f := cmd.Flags()
	f.StringVarP(&c.flags.changeWorkbook, "change-wb", "w", "", "select a workbook, creating it when it does not exist")
	f.BoolVarP(&c.flags.fetch, "fetch", "f", false, "fetch screener rows")
	f.BoolVarP(&c.flags.save, "save", "s", false, "open the fetched rows and save the marked ones")
	f.BoolVarP(&c.flags.saveAll, "saveall", "a", false, "save every fetched row")
	f.BoolVarP(&c.flags.autocopy, "autocopy", "c", false, "refresh the automatic copy of the workbook")
	f.StringVar(&c.flags.export, "export", "", "export the workbook as txt, csv, json or all")
	f.Lookup("export").NoOptDefVal = string(workbook.ExportAll)

	addCommands(cmd, c)
	return cmd
}

// load builds the app once per process.
func (c *cli) load(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := initializeApp(ctx, c.configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) hasOneShot(cmd *cobra.Command) bool {
	for _, name := range []string{"change-wb", "fetch", "save", "saveall", "autocopy", "export"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func runOneShot(ctx context.Context, a *app.App, flags oneShot, out io.Writer) error {
	if flags.changeWorkbook != "" {
		if err := selectOrCreate(a, flags.changeWorkbook, out); err != nil {
			return err
		}
	}
	if flags.fetch {
		res, err := a.Fetch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Fetched %d rows.\n", len(res.Rows))
	}
	if flags.save {
		res, err := a.Save(ctx)
		if err != nil {
			return err
		}
		printSaved(out, res)
	}
	if flags.saveAll {
		res, err := a.SaveAll(ctx)
		if err != nil {
			return err
		}
		printSaved(out, res)
	}
	if flags.autocopy {
		if err := a.Autocopy(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Autocopy updated.")
	}
	if flags.export != "" {
		format, err := workbook.ParseExportFormat(flags.export)
		if err != nil {
			return err
		}
		files, err := a.Export(format)
		if err != nil {
			return err
		}
		printExported(out, files)
	}
	return nil
}

// selectOrCreate selects name without asking, creating the workbook when it is missing.
func selectOrCreate(a *app.App, name string, out io.Writer) error {
	res, err := a.ChangeWorkbook(name, false)
	if errors.Is(err, workbook.ErrNotFound) {
		res, err = a.ChangeWorkbook(name, true)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Workbook %s %s.\n", name, res)
	return nil
}

func printSaved(out io.Writer, res *app.SaveResult) {
	if len(res.Symbols) == 0 {
		fmt.Fprintln(out, "Nothing was saved.")
		return
	}
	fmt.Fprintf(out, "Saved %d rows starting at row %d:\n", len(res.Symbols), res.FirstRow)
	for _, s := range res.Symbols {
		fmt.Fprintln(out, s)
	}
	if res.DateExisted {
		fmt.Fprintln(out, "Rows for this date already existed in the workbook, 'remove duplicates' cleans up repeated symbols.")
	}
}

func printExported(out io.Writer, files []string) {
	for _, f := range files {
		fmt.Fprintf(out, "Exported %s\n", f)
	}
}
