package frame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/google/uuid"
)

const maxRowGroupLength = 8124

// Temporary files use a distinct extension so a crashed write is never
// picked up by the *.parquet glob on the indexing side.
const tmpFileExt = ".partial"

// WriteParquet persists the frame to path, writing a uuid-named temporary
// file in the same directory and renaming it into place.
func (f *Frame) WriteParquet(path string) error {
	fields := make([]arrow.Field, len(f.cols))
	for i, c := range f.cols {
		fields[i] = arrow.Field{Name: c.Name(), Type: c.arrowType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	for i, c := range f.cols {
		c.appendTo(builder.Field(i))
	}
	record := builder.NewRecord()
	defer record.Release()

	tmp := filepath.Join(filepath.Dir(path), uuid.NewString()+tmpFileExt)
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithMaxRowGroupLength(maxRowGroupLength),
	)
	arrProps := pqarrow.NewArrowWriterProperties()

	writer, err := pqarrow.NewFileWriter(schema, out, writerProps, arrProps)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadParquet materializes a parquet file into a Frame in one pass. This is
// the single materialization point for a table: the caller holds at most one
// table in memory at a time.
func ReadParquet(ctx context.Context, path string) (*Frame, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer tbl.Release()

	out := &Frame{byName: make(map[string]int, tbl.NumCols())}
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := tbl.Schema().Field(i)
		col, err := columnFromChunked(field, tbl.Column(i).Data())
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if err := out.addColumn(col); err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	return out, nil
}

func columnFromChunked(field arrow.Field, chunked *arrow.Chunked) (Column, error) {
	n := chunked.Len()
	var valid []bool
	hasNulls := false

	switch field.Type.ID() {
	case arrow.INT64:
		values := make([]int64, 0, n)
		valid = make([]bool, 0, n)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Int64)
			for i := 0; i < a.Len(); i++ {
				ok := a.IsValid(i)
				values = append(values, a.Value(i))
				valid = append(valid, ok)
				hasNulls = hasNulls || !ok
			}
		}
		if !hasNulls {
			valid = nil
		}
		return NewInt64Column(field.Name, values, valid), nil

	case arrow.FLOAT64:
		values := make([]float64, 0, n)
		valid = make([]bool, 0, n)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Float64)
			for i := 0; i < a.Len(); i++ {
				ok := a.IsValid(i)
				values = append(values, a.Value(i))
				valid = append(valid, ok)
				hasNulls = hasNulls || !ok
			}
		}
		if !hasNulls {
			valid = nil
		}
		return NewFloat64Column(field.Name, values, valid), nil

	case arrow.STRING:
		values := make([]string, 0, n)
		valid = make([]bool, 0, n)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.String)
			for i := 0; i < a.Len(); i++ {
				ok := a.IsValid(i)
				if ok {
					values = append(values, a.Value(i))
				} else {
					values = append(values, "")
				}
				valid = append(valid, ok)
				hasNulls = hasNulls || !ok
			}
		}
		if !hasNulls {
			valid = nil
		}
		return NewStringColumn(field.Name, values, valid), nil

	case arrow.BOOL:
		values := make([]bool, 0, n)
		valid = make([]bool, 0, n)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Boolean)
			for i := 0; i < a.Len(); i++ {
				ok := a.IsValid(i)
				values = append(values, a.Value(i))
				valid = append(valid, ok)
				hasNulls = hasNulls || !ok
			}
		}
		if !hasNulls {
			valid = nil
		}
		return NewBoolColumn(field.Name, values, valid), nil
	}
	return nil, fmt.Errorf("unsupported column type %s for column %q", field.Type, field.Name)
}
