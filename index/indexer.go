// Package index builds the global dataset manifest: one summary per parquet
// table under the processed root, with optional per-column offset indices
// and bloom filters, aggregated into a single overwritten JSON document.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"demopipe/frame"
	"demopipe/layout"
	"demopipe/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DatasetIndexer scans a processed root and produces the dataset manifest.
// Runs against the same root are not safe against each other and must be
// serialized by the caller.
type DatasetIndexer struct {
	layout   *layout.ProcessedLayout
	strategy *model.IndexingStrategy
	filter   *vm.Program
	log      zerolog.Logger
}

type Option func(*DatasetIndexer) error

// WithDemoFilter restricts indexing to demos for which the expression
// evaluates true. The expression sees `demo` (the stem) and `metadata` (the
// decoded metadata.json, or an empty map).
func WithDemoFilter(src string) Option {
	return func(d *DatasetIndexer) error {
		program, err := expr.Compile(src, expr.AsBool())
		if err != nil {
			return fmt.Errorf("compile demo filter: %w", err)
		}
		d.filter = program
		return nil
	}
}

// New fails fast when the processed root is missing or not a directory: the
// indexer only reads, it never creates structure.
func New(root string, strategy *model.IndexingStrategy, opts ...Option) (*DatasetIndexer, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("processed root %s: %w", root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("processed root %s is not a directory", root)
	}
	if strategy == nil {
		strategy = model.DefaultStrategy()
	}
	d := &DatasetIndexer{
		layout:   layout.New(root),
		strategy: strategy,
		log:      log.With().Str("component", "indexer").Logger(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// BuildManifest enumerates demo directories in ascending name order and
// summarizes every table file in each. Demo directories without a tables
// subdirectory, or with zero table files, produce no record. Any unreadable
// table aborts the whole build.
func (d *DatasetIndexer) BuildManifest(ctx context.Context) (*model.Manifest, error) {
	entries, err := os.ReadDir(d.layout.Root)
	if err != nil {
		return nil, fmt.Errorf("scan processed root: %w", err)
	}

	datasets := make([]model.DatasetRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stem := entry.Name()

		tablesDir := d.layout.TablesPath(stem)
		if st, err := os.Stat(tablesDir); err != nil || !st.IsDir() {
			continue
		}

		tableFiles, err := filepath.Glob(filepath.Join(tablesDir, "*"+layout.TableExt))
		if err != nil {
			return nil, fmt.Errorf("scan tables of %s: %w", stem, err)
		}
		if len(tableFiles) == 0 {
			d.log.Debug().Str("demo", stem).Msg("tables directory is empty, skipping")
			continue
		}

		keep, err := d.admit(stem)
		if err != nil {
			return nil, err
		}
		if !keep {
			d.log.Debug().Str("demo", stem).Msg("demo filtered out")
			continue
		}

		tables := make([]model.TableSummary, 0, len(tableFiles))
		for _, tablePath := range tableFiles {
			summary, err := d.summarizeTable(ctx, tablePath)
			if err != nil {
				return nil, err
			}
			tables = append(tables, summary)
		}

		demoDir, err := filepath.Abs(d.layout.DemoPath(stem))
		if err != nil {
			return nil, err
		}
		var metadataFile *string
		if metaPath := d.layout.MetadataPath(stem); fileExists(metaPath) {
			abs, err := filepath.Abs(metaPath)
			if err != nil {
				return nil, err
			}
			metadataFile = &abs
		}

		datasets = append(datasets, model.DatasetRecord{
			DemoStem:     stem,
			DemoDir:      demoDir,
			MetadataFile: metadataFile,
			Tables:       tables,
		})
		d.log.Debug().Str("demo", stem).Int("tables", len(tables)).Msg("summarized demo")
	}

	return &model.Manifest{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		DatasetCount: len(datasets),
		Datasets:     datasets,
	}, nil
}

// WriteManifest builds the manifest and overwrites the global manifest file,
// going through a uuid-named temporary file and a rename.
func (d *DatasetIndexer) WriteManifest(ctx context.Context) (string, error) {
	manifest, err := d.BuildManifest(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	target := d.layout.GlobalManifestPath()
	tmp := filepath.Join(d.layout.Root, "_manifest."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write manifest: %w", err)
	}
	d.log.Info().Str("path", target).Int("datasets", manifest.DatasetCount).Msg("manifest written")
	return target, nil
}

func (d *DatasetIndexer) admit(stem string) (bool, error) {
	if d.filter == nil {
		return true, nil
	}
	metadata := map[string]any{}
	if metaPath := d.layout.MetadataPath(stem); fileExists(metaPath) {
		raw, err := os.ReadFile(metaPath)
		if err != nil {
			return false, fmt.Errorf("read metadata of %s: %w", stem, err)
		}
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return false, fmt.Errorf("decode metadata of %s: %w", stem, err)
		}
	}
	out, err := expr.Run(d.filter, map[string]any{"demo": stem, "metadata": metadata})
	if err != nil {
		return false, fmt.Errorf("demo filter on %s: %w", stem, err)
	}
	return out.(bool), nil
}

func (d *DatasetIndexer) summarizeTable(ctx context.Context, tablePath string) (model.TableSummary, error) {
	tableName := strings.TrimSuffix(filepath.Base(tablePath), layout.TableExt)

	f, err := frame.ReadParquet(ctx, tablePath)
	if err != nil {
		return model.TableSummary{}, err
	}

	st, err := os.Stat(tablePath)
	if err != nil {
		return model.TableSummary{}, fmt.Errorf("stat %s: %w", tablePath, err)
	}
	abs, err := filepath.Abs(tablePath)
	if err != nil {
		return model.TableSummary{}, err
	}

	stats := make(map[string]map[string]model.Value)
	if d.strategy.NumericStatistics {
		mins := make(map[string]model.Value)
		maxs := make(map[string]model.Value)
		for _, col := range f.Columns() {
			if !col.Numeric() {
				continue
			}
			mn, mx, ok := col.MinMax()
			if !ok {
				continue
			}
			mins[col.Name()] = mn
			maxs[col.Name()] = mx
		}
		if len(mins) > 0 {
			stats["min"] = mins
			stats["max"] = maxs
		}
	}

	return model.TableSummary{
		TableName:     tableName,
		Path:          abs,
		FileSizeBytes: st.Size(),
		RowCount:      f.NumRows(),
		Schema:        f.Schema(),
		Stats:         stats,
		OffsetIndex:   buildOffsetIndex(f, d.strategy.OffsetsFor(tableName)),
		BloomFilters:  buildBloomFilters(f, d.strategy.BloomsFor(tableName)),
	}, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
