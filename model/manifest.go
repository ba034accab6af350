package model

// BloomFilterInfo is the serialized form of a column membership filter. The
// bit array is stored as the sorted list of set bit positions so a consumer
// can rebuild the filter and test membership with the same hash parameters.
type BloomFilterInfo struct {
	NumBits   int      `json:"num_bits"`
	HashCount int      `json:"hash_count"`
	SetBits   []uint32 `json:"set_bits"`
}

// OffsetEntry maps one distinct column value to the ascending row positions
// holding it.
type OffsetEntry struct {
	Value     Value   `json:"value"`
	Positions []int64 `json:"positions"`
}

// TableSummary describes one parquet table. Recomputed wholesale on every
// indexing run.
type TableSummary struct {
	TableName     string                      `json:"table_name"`
	Path          string                      `json:"path"`
	FileSizeBytes int64                       `json:"file_size_bytes"`
	RowCount      int64                       `json:"row_count"`
	Schema        map[string]string           `json:"schema"`
	Stats         map[string]map[string]Value `json:"stats"`
	OffsetIndex   map[string][]OffsetEntry    `json:"offset_index"`
	BloomFilters  map[string]BloomFilterInfo  `json:"bloom_filters"`
}

// DatasetRecord is the per-demo aggregate inside a Manifest.
type DatasetRecord struct {
	DemoStem     string         `json:"demo_stem"`
	DemoDir      string         `json:"demo_dir"`
	MetadataFile *string        `json:"metadata_file"`
	Tables       []TableSummary `json:"tables"`
}

// Manifest is the global dataset document written to _manifest.json.
type Manifest struct {
	GeneratedAt  string          `json:"generated_at"`
	DatasetCount int             `json:"dataset_count"`
	Datasets     []DatasetRecord `json:"datasets"`
}

// IngestManifestEntry is one record in the ingestion-side manifest.json,
// upserted per demo as ingestion completes.
type IngestManifestEntry struct {
	DemoName     string   `json:"demo_name"`
	DemoStem     string   `json:"demo_stem"`
	Source       string   `json:"source"`
	OutputDir    string   `json:"output_dir"`
	TablesDir    string   `json:"tables_dir"`
	MetadataFile string   `json:"metadata_file"`
	TotalRounds  any      `json:"total_rounds"`
	Parser       string   `json:"parser"`
	Tables       []string `json:"tables"`
	ProcessedAt  string   `json:"processed_at"`
}
