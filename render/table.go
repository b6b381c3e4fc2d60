// Package render prints the clock table.
package render

import (
	"fmt"
	"io"
	"strconv"

	"worldclock/models"

	"github.com/olekukonko/tablewriter"
)

// Column titles of the clock table
var Header = []string{"UTC offset", "Location", "Current time"}

// Options controls the table appearance
type Options struct {
	Color bool
}

// Error wraps a failure to write the table
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to print table: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Table writes rows to w in the order given
func Table(w io.Writer, rows []models.OutputRow, opts Options) error {
	ew := &errWriter{w: w}

	table := tablewriter.NewWriter(ew)
	table.SetHeader(Header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_DEFAULT,
	})

	if opts.Color {
		table.SetHeaderColor(
			tablewriter.Colors{tablewriter.Bold},
			tablewriter.Colors{tablewriter.Bold},
			tablewriter.Colors{tablewriter.Bold},
		)
		table.SetColumnColor(
			tablewriter.Colors{tablewriter.FgGreenColor},
			tablewriter.Colors{tablewriter.FgCyanColor},
			tablewriter.Colors{tablewriter.FgMagentaColor},
		)
	}

	for _, row := range rows {
		table.Append([]string{
			strconv.Itoa(int(row.Offset)),
			row.Zone,
			row.CurrentTime,
		})
	}
	table.Render()

	if ew.err != nil {
		return &Error{Err: ew.err}
	}
	return nil
}

// errWriter remembers the first write error and drops everything after it
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}
