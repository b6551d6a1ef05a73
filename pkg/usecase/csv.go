package usecase

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow is one data row keyed by header name
type csvRow struct {
	line   int
	header []string
	fields map[string]string
}

// get returns the trimmed value of a column, empty when missing
func (r csvRow) get(name string) string {
	return strings.TrimSpace(r.fields[name])
}

// String renders the row in header order for error messages
func (r csvRow) String() string {
	parts := make([]string, 0, len(r.header))
	for _, h := range r.header {
		parts = append(parts, fmt.Sprintf("%s: %s", h, r.fields[h]))
	}
	return fmt.Sprintf("line %d {%s}", r.line, strings.Join(parts, ", "))
}

// readRows decodes a CSV file whose first row is the header. A UTF-8 byte
// order mark is skipped. Short rows leave the missing columns empty.
func readRows(name string, r io.Reader) ([]csvRow, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CSV header",
			goerr.V("file", name),
			goerr.T(model.ErrTagInvalidCSV))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read CSV row",
				goerr.V("file", name),
				goerr.T(model.ErrTagInvalidCSV))
		}

		line, _ := reader.FieldPos(0)
		row := csvRow{line: line, header: header, fields: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(record) {
				row.fields[h] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
