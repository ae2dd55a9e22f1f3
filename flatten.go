package flattenjson

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the construction options for a Flattener (spec.md
// section 6, "Construction options").
type Config struct {
	OutputDir      string
	CSV            bool
	XLSX           bool
	Force          bool
	MainTableName  string
	EmitPaths      emitPathSet
	ArraysAsTables bool
}

// Option configures a Config.
type Option func(*Config)

// WithCSV enables per-table CSV output.
func WithCSV() Option {
	return func(c *Config) { c.CSV = true }
}

// WithXLSX enables a single XLSX workbook output.
func WithXLSX() Option {
	return func(c *Config) { c.XLSX = true }
}

// WithForce removes an existing output_dir before starting, instead of
// failing with ErrOutputExists.
func WithForce() Option {
	return func(c *Config) { c.Force = true }
}

// WithMainTableName sets the table name used for the top-level record.
// The default is "main".
func WithMainTableName(name string) Option {
	return func(c *Config) { c.MainTableName = name }
}

// WithEmitPath marks a no-index path (e.g. WithEmitPath("addr") or
// WithEmitPath("order", "items")) whose object subtrees are emitted as
// their own child table instead of being promoted into the parent with
// prefixed keys.
func WithEmitPath(path ...string) Option {
	cp := append(NoIndexPath(nil), path...)
	return func(c *Config) { c.EmitPaths = append(c.EmitPaths, cp) }
}

// WithArraysAsTables controls whether arrays whose elements are all
// objects become child tables (the default, matching spec.md section
// 4.4 rule 1). Passing false demotes such arrays to their heterogeneous
// JSON-stringified form instead; additive redesign flag, see
// SPEC_FULL.md section 7.
func WithArraysAsTables(v bool) Option {
	return func(c *Config) { c.ArraysAsTables = v }
}

// NewConfig builds a Config for outputDir with the given options applied.
func NewConfig(outputDir string, opts ...Option) *Config {
	cfg := &Config{
		OutputDir:      outputDir,
		MainTableName:  "main",
		ArraysAsTables: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Flattener recursively decomposes JSON records into table rows with
// synthetic link columns (spec.md section 4.4). It owns all mutable
// run state: the row counter, per-table schemas, and staging writers.
// A Flattener is not safe for concurrent use; Pipeline runs it on a
// single consumer goroutine.
type Flattener struct {
	cfg       *Config
	registry  *TableRegistry
	rowNumber int
}

// NewFlattener prepares the output directory (per spec.md section 6's
// AlreadyExists/force contract) and returns a ready-to-run Flattener.
func NewFlattener(cfg *Config) (*Flattener, error) {
	if !cfg.CSV && !cfg.XLSX {
		return nil, ErrNoOutputFormat
	}
	if cfg.MainTableName == "" {
		cfg.MainTableName = "main"
	}

	if _, err := os.Stat(cfg.OutputDir); err == nil {
		if !cfg.Force {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, cfg.OutputDir)
		}
		if err := os.RemoveAll(cfg.OutputDir); err != nil {
			return nil, newStageError("setup", "", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, newStageError("setup", "", err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, "tmp"), 0o755); err != nil {
		return nil, newStageError("setup", "", err)
	}

	return &Flattener{
		cfg:       cfg,
		registry:  NewTableRegistry(cfg.OutputDir),
		rowNumber: 1,
	}, nil
}

// RowNumber returns the 1-based number that will be assigned to the next
// top-level record.
func (f *Flattener) RowNumber() int { return f.rowNumber }

// Registry exposes the table registry, primarily for the Finalizer.
func (f *Flattener) Registry() *TableRegistry { return f.registry }

// ProcessValue flattens one top-level JSON value. Non-object values are
// ignored per spec.md section 4.4. Every emitted row for this record is
// written to its table's staging CSV before ProcessValue returns.
func (f *Flattener) ProcessValue(v *JSONValue) error {
	if !v.IsObject() {
		return nil
	}
	if _, err := f.handleObject(v.Obj, true, nil, nil, nil, nil); err != nil {
		return err
	}
	f.rowNumber++
	return nil
}

// WriteFiles finalizes staged rows into final CSV/XLSX artifacts and
// table_metadata.json, then removes the staging directory.
func (f *Flattener) WriteFiles() error {
	return newFinalizer(f.cfg, f.registry).run()
}

// handleObject implements spec.md section 4.4. obj is mutated in place
// as fields are classified (arrays reduced/erased/recursed, objects
// removed-and-recursed-or-promoted); emit controls whether the resulting
// object is staged as a row of its own table or returned to the caller
// for promotion into the parent under prefixed keys.
func (f *Flattener) handleObject(
	obj JSONObject,
	emit bool,
	fullPath Path,
	noIndexPath NoIndexPath,
	ancestorsFull []Path,
	ancestorsNoIdx []NoIndexPath,
) (JSONObject, error) {
	// Snapshot the key list before iterating: the loop body inserts and
	// removes members of obj as it classifies each one, and ranging over
	// a live ordered map while mutating it would see those mutations.
	keys := obj.Keys()

	for _, key := range keys {
		value, present := obj.Get(key)
		if !present {
			// Defensive only: the loop deletes just the key it is
			// classifying and promotion only adds or overwrites keys, so
			// every snapshotted key is still present here.
			continue
		}

		switch value.Kind {
		case KindArray:
			if err := f.classifyArray(obj, key, value, fullPath, noIndexPath, ancestorsFull, ancestorsNoIdx); err != nil {
				return nil, err
			}
		case KindObject:
			if err := f.classifyObject(obj, key, value, fullPath, noIndexPath, ancestorsFull, ancestorsNoIdx); err != nil {
				return nil, err
			}
		default:
			// Scalars are retained as-is.
		}
	}

	if !emit {
		return obj, nil
	}
	if err := f.emitRow(obj, noIndexPath, ancestorsFull, ancestorsNoIdx); err != nil {
		return nil, err
	}
	return nil, nil
}

// classifyArray applies spec.md section 4.4 rule 1 to obj[key].
func (f *Flattener) classifyArray(
	obj JSONObject,
	key string,
	value *JSONValue,
	fullPath Path,
	noIndexPath NoIndexPath,
	ancestorsFull []Path,
	ancestorsNoIdx []NoIndexPath,
) error {
	arrLen := len(value.Arr)
	strCount, objCount := 0, 0
	for _, el := range value.Arr {
		switch el.Kind {
		case KindString:
			strCount++
		case KindObject:
			objCount++
		}
	}

	switch {
	case arrLen == 0:
		// Empty-array erasure takes precedence even though an empty array
		// vacuously satisfies strCount == arrLen too (spec.md section 4.4
		// edge-case policy).
		obj.Delete(key)
	case strCount == arrLen:
		joined := ""
		for i, el := range value.Arr {
			if i > 0 {
				joined += ","
			}
			joined += el.Str
		}
		obj.Set(key, NewString(joined))
	case objCount == arrLen && f.cfg.ArraysAsTables:
		obj.Delete(key)
		newNoIndexPath := noIndexPath.WithKey(key)
		newAncestorsNoIdx := append(append([]NoIndexPath(nil), ancestorsNoIdx...), newNoIndexPath)
		for i, el := range value.Arr {
			newFullPath := fullPath.WithKey(key).WithIndex(i)
			newAncestorsFull := append(append([]Path(nil), ancestorsFull...), newFullPath)
			if _, err := f.handleObject(el.Obj, true, newFullPath, newNoIndexPath, newAncestorsFull, newAncestorsNoIdx); err != nil {
				return err
			}
		}
	default:
		obj.Set(key, NewString(value.JSONString()))
	}
	return nil
}

// classifyObject applies spec.md section 4.4 rule 2 to obj[key].
func (f *Flattener) classifyObject(
	obj JSONObject,
	key string,
	value *JSONValue,
	fullPath Path,
	noIndexPath NoIndexPath,
	ancestorsFull []Path,
	ancestorsNoIdx []NoIndexPath,
) error {
	obj.Delete(key)

	newFullPath := fullPath.WithKey(key)
	newNoIndexPath := noIndexPath.WithKey(key)
	emitChild := f.cfg.EmitPaths.Contains(newNoIndexPath)

	child, err := f.handleObject(value.Obj, emitChild, newFullPath, newNoIndexPath, ancestorsFull, ancestorsNoIdx)
	if err != nil {
		return err
	}
	if child == nil {
		// emitChild was true: the nested object was staged as its own
		// row and the parent field is dropped entirely.
		return nil
	}
	// Promote each (k, v) of the flattened child under "<key>_<k>".
	// Later writes overwrite earlier under the same key within one
	// record (spec.md section 9 open question (b)).
	for pair := child.Oldest(); pair != nil; pair = pair.Next() {
		obj.Set(key+"_"+pair.Key, pair.Value)
	}
	return nil
}

// emitRow inserts link columns into obj and stages it as a row of its
// table (spec.md section 4.4, "After processing all children").
func (f *Flattener) emitRow(
	obj JSONObject,
	noIndexPath NoIndexPath,
	ancestorsFull []Path,
	ancestorsNoIdx []NoIndexPath,
) error {
	rowNum := f.rowNumber

	if len(ancestorsFull) == 0 {
		obj.Set("_link", NewString(strconv.Itoa(rowNum)))
	} else {
		last := len(ancestorsFull) - 1
		for i := range ancestorsFull {
			full, noIdx := ancestorsFull[i], ancestorsNoIdx[i]
			linkValue := strconv.Itoa(rowNum) + "." + full.FullJoin()
			if i != last {
				obj.Set("_link_"+noIdx.Join(), NewString(linkValue))
			} else {
				obj.Set("_link", NewString(linkValue))
			}
		}
	}
	obj.Set("_link_"+f.cfg.MainTableName, NewString(strconv.Itoa(rowNum)))

	tableName := noIndexPath.Join()
	if tableName == "" {
		tableName = f.cfg.MainTableName
	}

	table, err := f.registry.EnsureTable(tableName)
	if err != nil {
		return err
	}
	row := &JSONValue{Kind: KindObject, Obj: obj}
	return table.AppendStagedRow(row)
}
