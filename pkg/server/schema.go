package server

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// inferSchema builds a column name to type map from the CSV files in
// the mock tree. The mock data mirrors the private data's shape, so the
// inferred schema describes both. Non-CSV files are ignored; a column
// seen in several files keeps the first inferred type.
func inferSchema(dir string) map[string]string {
	schema := map[string]string{}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		for col, typ := range inferCSVColumns(path) {
			if _, seen := schema[col]; !seen {
				schema[col] = typ
			}
		}
		return nil
	})
	if len(schema) == 0 {
		return nil
	}
	return schema
}

// inferCSVColumns reads the header and the first data row of one CSV
// file and guesses a type per column.
func inferCSVColumns(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil
	}
	row, err := r.Read()
	if err != nil && err != io.EOF {
		return nil
	}

	cols := make(map[string]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		typ := "string"
		if i < len(row) {
			typ = inferValueType(strings.TrimSpace(row[i]))
		}
		cols[name] = typ
	}
	return cols
}

func inferValueType(v string) string {
	if v == "" {
		return "string"
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return "integer"
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return "float"
	}
	if _, err := strconv.ParseBool(v); err == nil {
		return "boolean"
	}
	return "string"
}
