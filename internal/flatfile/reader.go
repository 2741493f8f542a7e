package flatfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"

	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvFile is an open delimited file positioned after its header row
type csvFile struct {
	f      *os.File
	r      *csv.Reader
	header []string
}

func openCSV(path string) (*csvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.NewNotFoundError(fmt.Sprintf("file %s", path))
		}
		return nil, utils.NewIOError(err, fmt.Sprintf("open %s", path))
	}

	br := bufio.NewReader(f)
	if prefix, _ := br.Peek(len(utf8BOM)); bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	// short records are tolerated; missing trailing cells read as null
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, utils.NewMalformedInputError(fmt.Sprintf("%s has no header row", path), nil)
		}
		return nil, parseError(path, err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			f.Close()
			return nil, utils.NewMalformedInputError(fmt.Sprintf("%s: header field %d is empty", path, i+1), nil)
		}
	}
	return &csvFile{f: f, r: r, header: header}, nil
}

func (c *csvFile) Close() error {
	return c.f.Close()
}

func parseError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return utils.NewMalformedInputError(fmt.Sprintf("%s: cannot parse line %d", path, pe.Line), err)
	}
	return utils.NewIOError(err, fmt.Sprintf("read %s", path))
}

// ReadHeader returns the file's column names in header order.
func ReadHeader(path string) ([]string, error) {
	c, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.header, nil
}

// projection maps each requested column to its header index.
// An empty request selects every header column. Duplicate header names
// resolve to their first occurrence.
func projection(path string, header, columns []string) ([]string, []int, error) {
	if len(columns) == 0 {
		columns = header
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := index[c]
		if !ok {
			return nil, nil, utils.NewColumnNotFoundError(c, path)
		}
		idx[i] = j
	}
	return columns, idx, nil
}

// ReadRows validates the requested columns against the header and returns
// them with a lazy, single-pass sequence of projected rows. The file is
// reopened when the sequence is ranged over and closed when it ends or the
// caller stops early. limit <= 0 reads every row.
func ReadRows(path string, columns []string, limit int) ([]string, iter.Seq2[model.Row, error], error) {
	header, err := ReadHeader(path)
	if err != nil {
		return nil, nil, err
	}
	columns, idx, err := projection(path, header, columns)
	if err != nil {
		return nil, nil, err
	}

	seq := func(yield func(model.Row, error) bool) {
		c, err := openCSV(path)
		if err != nil {
			yield(model.Row{}, err)
			return
		}
		defer c.Close()

		for n := 0; limit <= 0 || n < limit; n++ {
			record, err := c.r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(model.Row{}, parseError(path, err))
				return
			}
			values := make([]*string, len(idx))
			for i, j := range idx {
				if j < len(record) {
					values[i] = &record[j]
				}
			}
			if !yield(model.NewRow(columns, values), nil) {
				return
			}
		}
	}
	return columns, seq, nil
}

// Collect drains a row sequence into memory.
func Collect(rows iter.Seq2[model.Row, error]) ([]model.Row, error) {
	var out []model.Row
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
