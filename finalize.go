package flattenjson

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// finalizer performs the two-pass staging-to-output rewrite described in
// spec.md section 4.6, after the producer/consumer pipeline has joined.
type finalizer struct {
	cfg      *Config
	registry *TableRegistry
}

func newFinalizer(cfg *Config, registry *TableRegistry) *finalizer {
	return &finalizer{cfg: cfg, registry: registry}
}

// run executes finalization steps 1-5. Steps 2 and 3 each read the
// staging files independently and may both execute.
func (fz *finalizer) run() error {
	if err := fz.registry.FlushAll(); err != nil {
		return err
	}
	if err := fz.registry.CloseAll(); err != nil {
		return err
	}

	if fz.cfg.CSV {
		if err := fz.writeCSVs(); err != nil {
			return err
		}
	}
	if fz.cfg.XLSX {
		if err := fz.writeXLSX(); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(filepath.Join(fz.cfg.OutputDir, "tmp")); err != nil {
		return newStageError("finalize", "", err)
	}
	return fz.writeMetadata()
}

// writeCSVs implements step 2: for each table, rewrite its staging file
// into a header-first, fully-padded final CSV at <output>/csv/<name>.csv.
func (fz *finalizer) writeCSVs() error {
	csvDir := filepath.Join(fz.cfg.OutputDir, "csv")
	if err := os.MkdirAll(csvDir, 0o755); err != nil {
		return newStageError("finalize", "", err)
	}

	for _, name := range fz.registry.TableNames() {
		table := fz.registry.Table(name)
		if err := fz.writeTableCSV(csvDir, table); err != nil {
			return err
		}
	}
	return nil
}

func (fz *finalizer) writeTableCSV(csvDir string, table *Table) error {
	in, err := os.Open(table.stagingPath) //nolint:gosec // staging path is registry-owned, not arbitrary user input
	if err != nil {
		return newStageError("finalize", table.Name, err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1 // staging rows grow in width as new fields appear

	outPath := filepath.Join(csvDir, table.Name+".csv")
	out, err := os.Create(outPath) //nolint:gosec // table name is derived from configured/record-driven paths, not arbitrary user input
	if err != nil {
		return newStageError("finalize", table.Name, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	width := len(table.Fields)
	if err := writer.Write(table.Fields); err != nil {
		return newStageError("finalize", table.Name, err)
	}

	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return newStageError("finalize", table.Name, err)
		}
		row = padRow(row, width)
		if err := writer.Write(row); err != nil {
			return newStageError("finalize", table.Name, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return newStageError("finalize", table.Name, err)
	}
	return nil
}

// padRow right-pads row with empty cells until it reaches width. Staged
// rows are never wider than the table's final field count (schema
// monotonicity), but may be narrower if fields were added by records
// staged after this one.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// writeXLSX implements step 3: one workbook with one worksheet per table.
func (fz *finalizer) writeXLSX() error {
	wb := excelize.NewFile()
	defer wb.Close()

	names := fz.registry.TableNames()
	for i, name := range names {
		table := fz.registry.Table(name)
		sheet := name
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), sheet); err != nil {
				return newStageError("workbook", name, err)
			}
		} else if _, err := wb.NewSheet(sheet); err != nil {
			return newStageError("workbook", name, err)
		}
		if err := fz.writeSheet(wb, sheet, table); err != nil {
			return err
		}
	}

	outPath := filepath.Join(fz.cfg.OutputDir, "output.xlsx")
	if err := wb.SaveAs(outPath); err != nil {
		return newStageError("workbook", "", err)
	}
	return nil
}

func (fz *finalizer) writeSheet(wb *excelize.File, sheet string, table *Table) error {
	for col, field := range table.Fields {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return newStageError("workbook", table.Name, err)
		}
		if err := wb.SetCellStr(sheet, cell, field); err != nil {
			return newStageError("workbook", table.Name, err)
		}
	}

	in, err := os.Open(table.stagingPath) //nolint:gosec // staging path is registry-owned, not arbitrary user input
	if err != nil {
		return newStageError("workbook", table.Name, err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	rowIdx := 2 // row 1 is the header
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return newStageError("workbook", table.Name, err)
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return newStageError("workbook", table.Name, err)
			}
			if err := wb.SetCellStr(sheet, cell, value); err != nil {
				return newStageError("workbook", table.Name, err)
			}
		}
		rowIdx++
	}
	return nil
}

// metadataTable is the JSON shape of one table_metadata.json entry.
type metadataTable struct {
	Fields       []string              `json:"fields"`
	OutputFields map[string]*FieldMeta `json:"output_fields"`
}

// writeMetadata implements step 5.
func (fz *finalizer) writeMetadata() error {
	out := make(map[string]metadataTable, len(fz.registry.TableNames()))
	for _, name := range fz.registry.TableNames() {
		table := fz.registry.Table(name)
		out[name] = metadataTable{
			Fields:       table.Fields,
			OutputFields: table.OutputFields,
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return newStageError("finalize", "", err)
	}
	path := filepath.Join(fz.cfg.OutputDir, "table_metadata.json")
	if err := os.WriteFile(path, b, 0o644); err != nil { //nolint:gosec // metadata is non-sensitive run output
		return newStageError("finalize", "", err)
	}
	return nil
}
