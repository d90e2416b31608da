package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"screenerfetch/internal/app"
	"screenerfetch/internal/workbook"

	"github.com/rs/zerolog/log"
)

const commandList = `Commands:
  f | fetch              fetch screener rows with the current query
  s | save               mark rows with '+' in the opened text file and save them
  sa | save all          save every fetched row
  txt | open txt         open the fetched rows
  e | excel              open the workbook
  wb | change wb         select or create a workbook
  q | update query       edit query, market and headers
  query | market | headers  edit one of them directly
  print                  print the current query
  list                   list the workbooks
  run                    fetch, save all and refresh the autocopy
  update date            rewrite dates in yyyy/mm/dd format
  update nums            convert typed columns back to numbers
  remove duplicates      remove rows with the same date and symbol, the lowest row stays
  copy                   write the manual copy of the workbook
  export wb              export the workbook as txt, csv or json
  FORMAT WB              replace the workbook with one holding only headers
  DELETE WB              delete a workbook folder
  help                   quick guide
  exit                   refresh the autocopy and quit`

const helpMessage = `Quick guide:
1. Create a workbook with 'change wb'.
2. Type 'update query' and edit the query, market and headers.
3. Type 'fetch' to get rows for your query. 'txt' shows them.
4. Type 'save' to save rows marked with '+', or 'save all' to save every row.
5. Type 'excel' to check the workbook.
6. Type 'exit' to quit. This refreshes the autocopy; 'copy' writes the manual copy.
'run' does steps 3 and 4 with 'save all' and refreshes the autocopy.`

const queryHelp = `Edit query settings:
  query    edit the query JSON; the order of 'columns' is the column order of the workbook
  market   set a country name, or 'global' for several markets
  headers  edit the column header overrides JSON
  back     return`

// shell is the interactive command loop.
type shell struct {
	app *app.App
	in  *bufio.Scanner
	out io.Writer
}

func newShell(a *app.App, in io.Reader, out io.Writer) *shell {
	return &shell{app: a, in: bufio.NewScanner(in), out: out}
}

// Run reads commands until exit or end of input. The default workbook cannot be worked on,
// so one has to be selected first.
func (s *shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, commandList)
	for {
		for s.app.Session().Name() == workbook.DefaultName {
			fmt.Fprintln(s.out, "\nSelect or create a workbook to proceed.")
			if !s.changeWorkbook() {
				return nil
			}
		}
		line, ok := s.prompt(fmt.Sprintf("--------------------\n[main | WB=%s]>>> ", s.app.Session().Name()))
		if !ok {
			return s.exit()
		}
		done, err := s.dispatch(ctx, line)
		if err != nil {
			log.Debug().Err(err).Str("command", line).Msg("Command failed")
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// prompt writes msg and reads one line. It reports false at the end of input.
func (s *shell) prompt(msg string) (string, bool) {
	fmt.Fprint(s.out, msg)
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *shell) dispatch(ctx context.Context, line string) (bool, error) {
	a := s.app
	switch line {
	case "":
	case "help":
		fmt.Fprintln(s.out, helpMessage)
	case "commands":
		fmt.Fprintln(s.out, commandList)
	case "f", "fetch":
		res, err := a.Fetch(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Fetched %d rows.\n", len(res.Rows))
	case "s", "save":
		res, err := a.Save(ctx)
		if err != nil {
			return false, err
		}
		printSaved(s.out, res)
	case "sa", "save all", "saveall":
		res, err := a.SaveAll(ctx)
		if err != nil {
			return false, err
		}
		printSaved(s.out, res)
	case "txt", "open txt":
		return false, a.OpenDisplay(ctx)
	case "e", "excel":
		return false, a.OpenWorkbook(ctx)
	case "wb", "change wb":
		s.changeWorkbook()
	case "q", "update query":
		return false, s.updateQuery(ctx)
	case "query", "market", "headers":
		return false, s.queryCommand(ctx, line)
	case "print":
		return false, a.PrintQuery(s.out)
	case "list":
		return false, printWorkbooks(s.out, a)
	case "run":
		res, err := a.QuickRun(ctx)
		if err != nil {
			return false, err
		}
		printSaved(s.out, res)
	case "update date":
		return false, s.updateDate()
	case "update nums":
		return false, s.updateNums()
	case "remove duplicates":
		removed, err := a.RemoveDuplicates()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Removed %d duplicate rows.\n", len(removed))
	case "copy":
		return false, s.copy()
	case "export wb":
		return false, s.export()
	case "FORMAT WB":
		if err := a.Format(); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Workbook %s formatted.\n", a.Session().Name())
	case "DELETE WB":
		return false, s.deleteWorkbook()
	case "exit":
		return true, s.exit()
	default:
		fmt.Fprintln(s.out, "Invalid command. Type 'commands' for the list or 'help' for a quick guide.")
	}
	return false, nil
}

// changeWorkbook asks for a workbook name and selects it, offering to create a missing one.
// It reports false at the end of input.
func (s *shell) changeWorkbook() bool {
	name, ok := s.prompt(fmt.Sprintf("Give a workbook name. Current: %s\n[wb name]-> ", s.app.Session().Name()))
	if !ok {
		return false
	}
	if name == "" {
		fmt.Fprintln(s.out, "Name cannot be empty.")
		return true
	}
	res, err := s.app.ChangeWorkbook(name, false)
	if errors.Is(err, workbook.ErrNotFound) {
		answer, ok := s.prompt(fmt.Sprintf("Did not find workbook %q. Type 'yes' to create it.\n[change wb]-> ", name))
		if !ok {
			return false
		}
		if !strings.EqualFold(answer, "yes") {
			return true
		}
		res, err = s.app.ChangeWorkbook(name, true)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return true
	}
	fmt.Fprintf(s.out, "Workbook %s %s.\n", name, res)
	return true
}

func (s *shell) updateQuery(ctx context.Context) error {
	fmt.Fprintln(s.out, queryHelp)
	for {
		cmd, ok := s.prompt("[update query]-> ")
		if !ok || cmd == "back" {
			return nil
		}
		if !isQueryCommand(cmd) {
			fmt.Fprintln(s.out, queryHelp)
			continue
		}
		if err := s.queryCommand(ctx, cmd); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func isQueryCommand(cmd string) bool {
	return cmd == "query" || cmd == "market" || cmd == "headers"
}

// queryCommand runs one of the query, market and headers commands.
func (s *shell) queryCommand(ctx context.Context, cmd string) error {
	switch cmd {
	case "query":
		update, err := s.app.UpdateQuery(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Query updated: %d columns, market %s.\n", len(update.Columns), update.Market)
		if update.Reformatted {
			fmt.Fprintln(s.out, "Workbook was formatted for the new columns.")
		}
	case "market":
		market, ok := s.prompt(fmt.Sprintf("Type a market value, it is not validated. Current: %s\n--> ",
			s.app.Session().Settings().Market))
		if !ok {
			return nil
		}
		return s.app.SetMarket(market)
	case "headers":
		if err := s.app.UpdateHeaders(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Headers updated.")
	}
	return nil
}

func (s *shell) updateDate() error {
	answer, ok := s.prompt("Give the row (>= 2) where updating starts, empty for 2.\n-> ")
	if !ok {
		return nil
	}
	start, err := startRow([]string{answer})
	if err != nil {
		return err
	}
	n, err := s.app.UpdateDate(start)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %d dates.\n", n)
	return nil
}

func (s *shell) updateNums() error {
	answer, ok := s.prompt("[update nums]-> This can overwrite data, copy the workbook first.\nTo proceed, type \"Yes\".\n=> ")
	if !ok || answer != "Yes" {
		fmt.Fprintln(s.out, "Updating halted.")
		return nil
	}
	n, err := s.app.UpdateNums(2)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %d cells.\n", n)
	return nil
}

func (s *shell) copy() error {
	answer, ok := s.prompt("Type \"yes\" to write the manual copy of the workbook.\n=> ")
	if !ok || !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(s.out, "No copy was made.")
		return nil
	}
	if err := s.app.Copy(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Copying was successful.")
	return nil
}

func (s *shell) export() error {
	answer, ok := s.prompt("Enter a file type: txt, csv, json or all. Type 'back' to return.\n[export wb]-> ")
	if !ok || answer == "back" {
		fmt.Fprintln(s.out, "Export halted.")
		return nil
	}
	format, err := workbook.ParseExportFormat(answer)
	if err != nil {
		return err
	}
	files, err := s.app.Export(format)
	if err != nil {
		return err
	}
	printExported(s.out, files)
	return nil
}

func (s *shell) deleteWorkbook() error {
	if err := printWorkbooks(s.out, s.app); err != nil {
		return err
	}
	name, ok := s.prompt("Type the name of the workbook to delete.\n[delete wb]-> ")
	if !ok || name == "" {
		return nil
	}
	if err := s.app.DeleteWorkbook(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Workbook %s deleted.\n", name)
	return nil
}

// exit refreshes the automatic copy of the selected workbook.
func (s *shell) exit() error {
	if s.app.Session().Name() == workbook.DefaultName {
		return nil
	}
	return s.app.Autocopy()
}

func printWorkbooks(out io.Writer, a *app.App) error {
	names, err := a.List()
	if err != nil {
		return err
	}
	current := a.Session().Name()
	for _, n := range names {
		mark := " "
		if n == current {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, n)
	}
	return nil
}
