package model

// Wildcard is the strategy key that applies to every table.
const Wildcard = "*"

// IndexingStrategy selects which columns receive offset indices and bloom
// filters, and whether numeric min/max statistics are computed. Keys of the
// column maps are table names or Wildcard; wildcard and exact entries are a
// union, not a precedence chain.
type IndexingStrategy struct {
	OffsetColumns      map[string][]string `yaml:"offset_columns" json:"offset_columns"`
	BloomFilterColumns map[string][]string `yaml:"bloom_filter_columns" json:"bloom_filter_columns"`
	NumericStatistics  bool                `yaml:"numeric_statistics" json:"numeric_statistics"`
}

// DefaultStrategy has no indexed columns and numeric statistics enabled.
func DefaultStrategy() *IndexingStrategy {
	return &IndexingStrategy{NumericStatistics: true}
}

func merged(table string, m map[string][]string) []string {
	var columns []string
	columns = append(columns, m[Wildcard]...)
	if table != Wildcard {
		columns = append(columns, m[table]...)
	}
	return columns
}

// OffsetsFor resolves the offset-index columns for a table: wildcard entries
// followed by exact-match entries.
func (s *IndexingStrategy) OffsetsFor(table string) []string {
	return merged(table, s.OffsetColumns)
}

// BloomsFor resolves the bloom-filter columns for a table.
func (s *IndexingStrategy) BloomsFor(table string) []string {
	return merged(table, s.BloomFilterColumns)
}
