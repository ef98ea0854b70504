package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/dvloznov/investment-ledger/internal/gcs"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// readWorkbook reads a workbook from a local path, or from storage when
// from is a gs:// URI.
func readWorkbook(ctx context.Context, storage gcs.Service, from string) ([]byte, error) {
	if !gcs.IsURI(from) {
		return os.ReadFile(from)
	}
	if storage == nil {
		return nil, fmt.Errorf("readWorkbook: no storage client for %s", from)
	}
	data, err := storage.Fetch(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("readWorkbook: %w", err)
	}
	return data, nil
}

// writeWorkbook writes data to a local path, or uploads it when dest is a
// gs:// URI.
func writeWorkbook(ctx context.Context, storage gcs.Service, dest string, data []byte) error {
	if !gcs.IsURI(dest) {
		return os.WriteFile(dest, data, 0o644)
	}
	if storage == nil {
		return fmt.Errorf("writeWorkbook: no storage client for %s", dest)
	}
	if err := storage.Upload(ctx, dest, bytes.NewReader(data), xlsxContentType); err != nil {
		return fmt.Errorf("writeWorkbook: %w", err)
	}
	return nil
}

// listSnapshots returns the workbooks under prefix, newest first.
func listSnapshots(ctx context.Context, storage gcs.Service, prefix string) ([]gcs.Object, error) {
	objects, err := storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listSnapshots: %w", err)
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Updated.After(objects[j].Updated)
	})
	return objects, nil
}
