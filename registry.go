package flattenjson

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Table is the per-table schema and staging writer owned by a
// TableRegistry. Fields is append-only: columns are never reordered or
// removed once assigned (spec invariant 3).
type Table struct {
	Name         string
	Fields       []string
	FieldIndex   map[string]int
	OutputFields map[string]*FieldMeta

	stagingPath string
	stagingFile *os.File
	stagingCSV  *csv.Writer
}

// AppendStagedRow writes one variable-width staging record for obj (a
// KindObject JSONValue whose members are already flattened scalars plus
// link columns). Cells are emitted in the order of the table's current
// Fields, with "" for fields missing from obj; keys present in obj but
// absent from Fields are appended to Fields in encounter order, after
// the known-field cells (spec section 4.3).
func (t *Table) AppendStagedRow(obj *JSONValue) error {
	cells := make([]string, len(t.Fields))
	for pair := obj.Obj.Oldest(); pair != nil; pair = pair.Next() {
		meta, ok := t.OutputFields[pair.Key]
		if !ok {
			meta = &FieldMeta{}
			t.OutputFields[pair.Key] = meta
		}
		cellValue := EncodeValue(pair.Value, meta)

		if idx, known := t.FieldIndex[pair.Key]; known {
			cells[idx] = cellValue
			continue
		}
		idx := len(t.Fields)
		t.Fields = append(t.Fields, pair.Key)
		t.FieldIndex[pair.Key] = idx
		cells = append(cells, cellValue)
	}
	if err := t.stagingCSV.Write(cells); err != nil {
		return newStageError("stage", t.Name, err)
	}
	return nil
}

// flush flushes the staging CSV writer for this table.
func (t *Table) flush() error {
	t.stagingCSV.Flush()
	if err := t.stagingCSV.Error(); err != nil {
		return newStageError("stage", t.Name, err)
	}
	return nil
}

// close flushes and closes the staging file.
func (t *Table) close() error {
	if err := t.flush(); err != nil {
		return err
	}
	return t.stagingFile.Close()
}

// TableRegistry owns per-table schema and staging writers, created
// lazily on first emission to a table (spec section 3, "Lifecycle").
type TableRegistry struct {
	outputDir string
	tables    map[string]*Table
	order     []string // table creation order, for deterministic finalization
}

// NewTableRegistry creates a registry rooted at outputDir. The caller
// must have already created outputDir/tmp.
func NewTableRegistry(outputDir string) *TableRegistry {
	return &TableRegistry{
		outputDir: outputDir,
		tables:    make(map[string]*Table),
	}
}

// EnsureTable returns the Table for name, creating its staging writer on
// first reference.
func (r *TableRegistry) EnsureTable(name string) (*Table, error) {
	if t, ok := r.tables[name]; ok {
		return t, nil
	}
	stagingPath := filepath.Join(r.outputDir, "tmp", name+".csv")
	f, err := os.Create(stagingPath) //nolint:gosec // table name is derived from configured/record-driven paths, not arbitrary user input
	if err != nil {
		return nil, newStageError("stage", name, fmt.Errorf("create staging file: %w", err))
	}
	t := &Table{
		Name:         name,
		FieldIndex:   make(map[string]int),
		OutputFields: make(map[string]*FieldMeta),
		stagingPath:  stagingPath,
		stagingFile:  f,
		stagingCSV:   csv.NewWriter(f),
	}
	r.tables[name] = t
	r.order = append(r.order, name)
	return t, nil
}

// TableNames returns table names in first-emission order.
func (r *TableRegistry) TableNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Table returns the Table for name, or nil if it has never been emitted
// to.
func (r *TableRegistry) Table(name string) *Table {
	return r.tables[name]
}

// FlushAll flushes every table's staging writer.
func (r *TableRegistry) FlushAll() error {
	for _, name := range r.order {
		if err := r.tables[name].flush(); err != nil {
			return err
		}
	}
	return nil
}

// CloseAll flushes and closes every table's staging file.
func (r *TableRegistry) CloseAll() error {
	for _, name := range r.order {
		if err := r.tables[name].close(); err != nil {
			return err
		}
	}
	return nil
}
