package index

import (
	"github.com/tidwall/btree"

	"demopipe/frame"
	"demopipe/model"
)

type offsetGroup struct {
	value     model.Value
	positions []int64
}

// buildOffsetIndex groups row positions by distinct value for every
// configured column present in the frame. Configured columns the table does
// not have are skipped without error. Entries come out sorted by value
// ascending; position lists keep ascending row order because rows are
// visited in order.
func buildOffsetIndex(f *frame.Frame, columns []string) map[string][]model.OffsetEntry {
	result := make(map[string][]model.OffsetEntry)
	for _, name := range columns {
		if _, done := result[name]; done {
			// wildcard and per-table lists may both name the column
			continue
		}
		col, ok := f.Column(name)
		if !ok {
			continue
		}

		groups := btree.NewBTreeG(func(a, b *offsetGroup) bool {
			return a.value.Less(b.value)
		})
		for i := 0; i < col.Len(); i++ {
			probe := &offsetGroup{value: col.Value(i)}
			g, found := groups.Get(probe)
			if !found {
				g = probe
				groups.Set(g)
			}
			g.positions = append(g.positions, int64(i))
		}

		entries := make([]model.OffsetEntry, 0, groups.Len())
		groups.Scan(func(g *offsetGroup) bool {
			entries = append(entries, model.OffsetEntry{Value: g.value, Positions: g.positions})
			return true
		})
		result[name] = entries
	}
	return result
}

// buildBloomFilters builds one membership filter per configured column
// present in the frame, hashing the canonical text of every non-null value.
func buildBloomFilters(f *frame.Frame, columns []string) map[string]model.BloomFilterInfo {
	result := make(map[string]model.BloomFilterInfo)
	for _, name := range columns {
		if _, done := result[name]; done {
			continue
		}
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		bloom := NewBloom(DefaultBloomBits, DefaultBloomHashes)
		for i := 0; i < col.Len(); i++ {
			if col.Null(i) {
				continue
			}
			bloom.Add(col.Value(i).Text())
		}
		result[name] = bloom.Info()
	}
	return result
}
