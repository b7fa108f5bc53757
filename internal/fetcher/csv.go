package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

const utf8BOM = "\uFEFF"

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	// HeaderCh, when set, receives the first row instead of the row channel.
	HeaderCh   chan<- []string
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV parses r on a goroutine and sends each row to the returned
// channel. The error channel carries at most one error. Both channels close
// when the input is exhausted. A leading UTF-8 BOM is dropped; SLD exports
// from Excel carry one.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		send := func(ch chan<- []string, row []string) bool {
			select {
			case ch <- row:
				return true
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return false
			}
		}

		for n := 0; ; n++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read row %d", n+1)
				return
			}
			if n == 0 && len(row) > 0 {
				row[0] = strings.TrimPrefix(row[0], utf8BOM)
			}
			if opts.TrimSpace {
				for i := range row {
					row[i] = strings.TrimSpace(row[i])
				}
			}

			var ch chan<- []string = rowCh
			if n == 0 && opts.HeaderCh != nil {
				ch = opts.HeaderCh
			}
			if !send(ch, row) {
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVMaps reads a headed CSV into one map per row keyed by the header names.
// Short rows leave the missing columns absent; surplus fields are dropped.
func ReadCSVMaps(ctx context.Context, r io.Reader) ([]map[string]string, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{HeaderCh: headerCh, LazyQuotes: true})

	var (
		header []string
		out    []map[string]string
	)
	for row := range rowCh {
		if header == nil {
			header = <-headerCh
			for i := range header {
				header[i] = strings.TrimSpace(header[i])
			}
		}
		m := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				m[name] = row[i]
			}
		}
		out = append(out, m)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}
