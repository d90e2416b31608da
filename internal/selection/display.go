// Package selection renders fetched screener rows into the editable display file and reads back
// the rows a user marked for saving.
package selection

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Marker is the character a user puts in front of a symbol to select its row.
const Marker = "+"

// PreambleLines is the number of lines written before the table.
const PreambleLines = 4

const instructions = "#After calling 'save', insert a single '+' (without quotations) before symbol names you'd " +
	"like to save in excel worksheet."

// Render writes the display file: instructions, the fetch date, then an aligned table of headers
// and rows separated by a dashed rule. headers and rows must not include the date column.
func Render(w io.Writer, date string, headers []string, rows [][]string) error {
	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeCells(tw, headers)
	for _, row := range rows {
		writeCells(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("align display table: %w", err)
	}

	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n\n[%s]\n\n", instructions, date)
	for i, line := range lines {
		bw.WriteString(line)
		bw.WriteByte('\n')
		if i == 0 {
			bw.WriteString(strings.Repeat("-", len(line)))
			bw.WriteByte('\n')
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write display file: %w", err)
	}
	return nil
}

// WriteFile renders the display file to path, replacing any previous content.
func WriteFile(path, date string, headers []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create display file: %w", err)
	}
	if err := Render(f, date, headers, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCells(w io.Writer, cells []string) {
	for _, c := range cells {
		// tabs inside values would break the alignment
		io.WriteString(w, strings.ReplaceAll(c, "\t", " "))
		io.WriteString(w, "\t")
	}
	io.WriteString(w, "\n")
}
