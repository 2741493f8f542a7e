package flatfile

import (
	"encoding/csv"
	"fmt"
	"iter"
	"os"

	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
)

// WriteRows truncates path and writes a header line followed by one line per
// row, returning the number of data rows written. Null cells are written as
// empty strings. Cells containing quotes, commas or line breaks are quoted.
//
// A failed write leaves whatever was already flushed on disk. An error from
// the row sequence itself is returned unchanged.
func WriteRows(path string, columns []string, rows iter.Seq2[model.Row, error]) (count int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, utils.NewIOError(err, fmt.Sprintf("create %s", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = utils.NewIOError(cerr, fmt.Sprintf("close %s", path))
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return 0, utils.NewIOError(err, fmt.Sprintf("write header to %s", path))
	}

	record := make([]string, len(columns))
	for row, rowErr := range rows {
		if rowErr != nil {
			w.Flush()
			return count, rowErr
		}
		for i, cell := range row.Cells(columns) {
			if cell == nil {
				record[i] = ""
			} else {
				record[i] = *cell
			}
		}
		if err := w.Write(record); err != nil {
			return count, utils.NewIOError(err, fmt.Sprintf("write row %d to %s", count+1, path))
		}
		count++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return count, utils.NewIOError(err, fmt.Sprintf("flush %s", path))
	}
	return count, nil
}

// Rows adapts an in-memory slice to a row sequence.
func Rows(rows []model.Row) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}
