package db

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nickyhof/easyext/core"
)

// ImportJSONL reads newline-delimited JSON objects from path and inserts
// them into table in a single commit. Blank lines are skipped.
func (s *Store) ImportJSONL(ctx context.Context, table string, path string, opts *S3Options) (ImportResult, error) {
	startTime := time.Now()

	reader, err := OpenReader(ctx, path, opts)
	if err != nil {
		return ImportResult{}, err
	}
	defer reader.Close()

	var rows []map[string]any
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		decoder := json.NewDecoder(bytes.NewReader(text))
		decoder.UseNumber()
		var row map[string]any
		if err := decoder.Decode(&row); err != nil {
			return ImportResult{}, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		rows = append(rows, row)

		if err := ctx.Err(); err != nil {
			return ImportResult{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return ImportResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(rows) == 0 {
		return ImportResult{Table: table, ExecutionTimeSec: time.Since(startTime).Seconds()}, nil
	}

	keys, txn, err := s.InsertAll(table, rows)
	if err != nil {
		return ImportResult{}, err
	}

	return ImportResult{
		Transaction:      txn,
		Table:            table,
		RecordsWritten:   len(keys),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// ExportJSONL writes the records of a source to path, one JSON object per
// line, and returns the number of records written.
func ExportJSONL(ctx context.Context, src core.Source, path string, opts *S3Options) (int, error) {
	records, err := src.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	writer, err := OpenWriter(ctx, path, opts)
	if err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(writer)
	for _, rec := range records {
		var payload any = rec.ID()
		if row, ok := rec.(*Row); ok {
			payload = row.Map()
		}
		if err := encoder.Encode(payload); err != nil {
			writer.Close()
			return 0, fmt.Errorf("failed to encode %s %s: %w", rec.Type(), rec.ID(), err)
		}
	}

	if err := writer.Close(); err != nil {
		return 0, err
	}
	return len(records), nil
}
