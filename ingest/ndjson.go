package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/go-faster/jx"

	"demopipe/frame"
)

// NDJSONParser reads demo event dumps: one JSON object per line, either
//
//	{"table": "<name>", "row": {<column>: <scalar>, ...}}
//	{"metadata": {<key>: <value>, ...}}
//
// Row values may be numbers, strings, booleans or nulls. A column's type is
// fixed by its first non-null value; integers promote to floats when a
// fractional value shows up later. Rows missing a column get a null.
type NDJSONParser struct{}

func NewNDJSONParser() *NDJSONParser { return &NDJSONParser{} }

func (p *NDJSONParser) Name() string { return "ndjson-events" }

func (p *NDJSONParser) Parse(ctx context.Context, demoPath string) (*ParseResult, error) {
	f, err := os.Open(demoPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	acc := newAccumulator()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := acc.parseLine(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return acc.finish()
}

type accumulator struct {
	tables   map[string]*tableAccum
	order    []string
	metadata map[string]any
}

func newAccumulator() *accumulator {
	return &accumulator{
		tables:   make(map[string]*tableAccum),
		metadata: make(map[string]any),
	}
}

func (a *accumulator) parseLine(line []byte) error {
	d := jx.DecodeBytes(line)
	var tableName string
	var rowRaw, metaRaw jx.Raw

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "table":
			tableName, err = d.Str()
		case "row":
			rowRaw, err = d.Raw()
		case "metadata":
			metaRaw, err = d.Raw()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return err
	}

	if metaRaw != nil {
		patch := map[string]any{}
		if err := json.Unmarshal(metaRaw, &patch); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
		for k, v := range patch {
			a.metadata[k] = v
		}
	}

	if rowRaw == nil && tableName == "" {
		return nil
	}
	if tableName == "" {
		return fmt.Errorf("row without table name")
	}
	if rowRaw == nil {
		return fmt.Errorf("table %q without row object", tableName)
	}
	return a.table(tableName).appendRow(rowRaw)
}

func (a *accumulator) table(name string) *tableAccum {
	t, ok := a.tables[name]
	if !ok {
		t = &tableAccum{cols: make(map[string]*colAccum)}
		a.tables[name] = t
		a.order = append(a.order, name)
	}
	return t
}

func (a *accumulator) finish() (*ParseResult, error) {
	tables := make(map[string]*frame.Frame, len(a.tables))
	for _, name := range a.order {
		f, err := a.tables[name].finish()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		tables[name] = f
	}
	return &ParseResult{Tables: tables, Metadata: a.metadata}, nil
}

type tableAccum struct {
	rows  int
	order []string
	cols  map[string]*colAccum
}

func (t *tableAccum) col(name string) *colAccum {
	c, ok := t.cols[name]
	if !ok {
		c = &colAccum{}
		t.cols[name] = c
		t.order = append(t.order, name)
	}
	return c
}

func (t *tableAccum) appendRow(raw jx.Raw) error {
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		c := t.col(key)
		c.pad(t.rows)
		switch d.Next() {
		case jx.Number:
			num, err := d.Num()
			if err != nil {
				return err
			}
			if num.IsInt() {
				v, err := num.Int64()
				if err != nil {
					return err
				}
				return c.appendInt(key, v)
			}
			v, err := num.Float64()
			if err != nil {
				return err
			}
			return c.appendFloat(key, v)
		case jx.String:
			v, err := d.Str()
			if err != nil {
				return err
			}
			return c.appendString(key, v)
		case jx.Bool:
			v, err := d.Bool()
			if err != nil {
				return err
			}
			return c.appendBool(key, v)
		case jx.Null:
			if err := d.Null(); err != nil {
				return err
			}
			c.appendNull()
			return nil
		default:
			return fmt.Errorf("column %q: unsupported value", key)
		}
	})
	if err != nil {
		return err
	}
	t.rows++
	for _, name := range t.order {
		t.cols[name].pad(t.rows)
	}
	return nil
}

func (t *tableAccum) finish() (*frame.Frame, error) {
	cols := make([]frame.Column, 0, len(t.order))
	for _, name := range t.order {
		cols = append(cols, t.cols[name].finish(name))
	}
	return frame.New(cols...)
}

type colKind uint8

const (
	colUnknown colKind = iota
	colInt
	colFloat
	colString
	colBool
)

type colAccum struct {
	kind    colKind
	valid   []bool
	anyNull bool

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
}

func (c *colAccum) len() int { return len(c.valid) }

func (c *colAccum) pad(rows int) {
	for c.len() < rows {
		c.appendNull()
	}
}

func (c *colAccum) appendNull() {
	c.valid = append(c.valid, false)
	c.anyNull = true
	switch c.kind {
	case colInt:
		c.ints = append(c.ints, 0)
	case colFloat:
		c.floats = append(c.floats, 0)
	case colString:
		c.strs = append(c.strs, "")
	case colBool:
		c.bools = append(c.bools, false)
	}
}

// settle types an untyped column, backfilling zero values for the nulls
// accumulated before the first non-null value.
func (c *colAccum) settle(kind colKind) {
	c.kind = kind
	n := c.len()
	switch kind {
	case colInt:
		c.ints = make([]int64, n)
	case colFloat:
		c.floats = make([]float64, n)
	case colString:
		c.strs = make([]string, n)
	case colBool:
		c.bools = make([]bool, n)
	}
}

func (c *colAccum) promoteToFloat() {
	c.floats = make([]float64, len(c.ints))
	for i, v := range c.ints {
		c.floats[i] = float64(v)
	}
	c.ints = nil
	c.kind = colFloat
}

func (c *colAccum) appendInt(name string, v int64) error {
	switch c.kind {
	case colUnknown:
		c.settle(colInt)
	case colInt:
	case colFloat:
		return c.appendFloat(name, float64(v))
	default:
		return fmt.Errorf("column %q: number after non-numeric values", name)
	}
	c.valid = append(c.valid, true)
	c.ints = append(c.ints, v)
	return nil
}

func (c *colAccum) appendFloat(name string, v float64) error {
	switch c.kind {
	case colUnknown:
		c.settle(colFloat)
	case colInt:
		c.promoteToFloat()
	case colFloat:
	default:
		return fmt.Errorf("column %q: number after non-numeric values", name)
	}
	c.valid = append(c.valid, true)
	c.floats = append(c.floats, v)
	return nil
}

func (c *colAccum) appendString(name string, v string) error {
	switch c.kind {
	case colUnknown:
		c.settle(colString)
	case colString:
	default:
		return fmt.Errorf("column %q: string after non-string values", name)
	}
	c.valid = append(c.valid, true)
	c.strs = append(c.strs, v)
	return nil
}

func (c *colAccum) appendBool(name string, v bool) error {
	switch c.kind {
	case colUnknown:
		c.settle(colBool)
	case colBool:
	default:
		return fmt.Errorf("column %q: bool after non-bool values", name)
	}
	c.valid = append(c.valid, true)
	c.bools = append(c.bools, v)
	return nil
}

func (c *colAccum) finish(name string) frame.Column {
	valid := c.valid
	if !c.anyNull {
		valid = nil
	}
	switch c.kind {
	case colInt:
		return frame.NewInt64Column(name, c.ints, valid)
	case colFloat:
		return frame.NewFloat64Column(name, c.floats, valid)
	case colBool:
		return frame.NewBoolColumn(name, c.bools, valid)
	case colString:
		return frame.NewStringColumn(name, c.strs, valid)
	default:
		// all-null column, shaped as strings
		return frame.NewStringColumn(name, make([]string, c.len()), c.valid)
	}
}
