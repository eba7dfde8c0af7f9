package adapters

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

// tabularAdapter reads a delimited file (CSV) into an array of row
// objects keyed by header, honoring SkipRows: the header is the first row
// after the skipped ones, and HeaderRow is not read. No dedicated CSV
// library is used: encoding/csv already handles quoting/escaping
// correctly and nothing in the example pack carries a richer CSV
// dependency, so the stdlib package is the idiomatic choice here — the
// file_document variant (office/PDF formats) is left a stub precisely
// because no such library is available in the pack (spec §4.9's scoping:
// "file_tabular and file_document adapters are stubs behind the same
// interface... out of core scope").
type tabularAdapter struct {
	ds config.DataSource
}

func newTabularAdapter(ds config.DataSource) *tabularAdapter {
	return &tabularAdapter{ds: ds}
}

func (a *tabularAdapter) ValidateConfig() bool {
	return a.ds.Path != ""
}

func (a *tabularAdapter) CacheKey(params map[string]string) string {
	return cacheKeyFor(a.ds.Name, params)
}

func (a *tabularAdapter) Fetch(ctx context.Context, params map[string]string) (value.Value, error) {
	if !a.ValidateConfig() {
		return value.Value{}, &AdapterError{Kind: ErrKindConfig, Source: a.ds.Name, Message: "missing path"}
	}

	f, err := os.Open(a.ds.Path)
	if err != nil {
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "open file", Cause: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	skip := a.ds.SkipRows
	for i := 0; i < skip; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return value.Array(), nil
			}
			return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "skip rows", Cause: err}
		}
	}

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return value.Array(), nil
		}
		return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "read header row", Cause: err}
	}

	var rows []value.Value
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return value.Value{}, &AdapterError{Kind: ErrKindFetch, Source: a.ds.Name, Message: "read row", Cause: err}
		}
		rows = append(rows, rowToObject(header, record))
	}

	return value.Array(rows...), nil
}

func rowToObject(header, record []string) value.Value {
	fields := make(map[string]value.Value, len(header))
	for i, col := range header {
		if i < len(record) {
			fields[col] = value.String(record[i])
		} else {
			fields[col] = value.Null()
		}
	}
	return value.Object(fields)
}
