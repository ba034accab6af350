package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demopipe/frame"
	"demopipe/layout"
	"demopipe/model"
)

func mustFrame(t *testing.T, cols ...frame.Column) *frame.Frame {
	t.Helper()
	f, err := frame.New(cols...)
	require.NoError(t, err)
	return f
}

func writeTable(t *testing.T, l *layout.ProcessedLayout, stem, table string, f *frame.Frame) {
	t.Helper()
	_, err := l.TablesDir(stem)
	require.NoError(t, err)
	require.NoError(t, f.WriteParquet(l.TablePath(stem, table)))
}

// createProcessedDemo lays out one demo with rounds and players tables plus
// a metadata file, mirroring what ingestion produces.
func createProcessedDemo(t *testing.T, root string) {
	t.Helper()
	l := layout.New(root)
	require.NoError(t, l.EnsureRoot())

	stem := "match_inferno"
	writeTable(t, l, stem, "rounds", mustFrame(t,
		frame.NewInt64Column("round_number", []int64{1, 2, 3}, nil),
		frame.NewInt64Column("tick", []int64{120, 420, 780}, nil),
		frame.NewStringColumn("winning_side", []string{"CT", "T", "CT"}, nil),
	))
	writeTable(t, l, stem, "players", mustFrame(t,
		frame.NewStringColumn("player_id", []string{"p1", "p2", "p3"}, nil),
		frame.NewInt64Column("round_number", []int64{1, 2, 3}, nil),
		frame.NewFloat64Column("damage", []float64{12.5, 30.0, 55.0}, nil),
	))
	require.NoError(t, os.WriteFile(l.MetadataPath(stem), []byte(`{"map": "de_inferno"}`), 0o644))
}

func findTable(t *testing.T, tables []model.TableSummary, name string) model.TableSummary {
	t.Helper()
	for _, tbl := range tables {
		if tbl.TableName == name {
			return tbl
		}
	}
	t.Fatalf("table %s not found", name)
	return model.TableSummary{}
}

func TestBuildManifestCollectsIndexMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)

	strategy := &model.IndexingStrategy{
		OffsetColumns:      map[string][]string{"rounds": {"round_number"}},
		BloomFilterColumns: map[string][]string{"rounds": {"winning_side"}},
		NumericStatistics:  true,
	}
	indexer, err := New(root, strategy)
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, manifest.DatasetCount)
	dataset := manifest.Datasets[0]
	assert.Equal(t, "match_inferno", dataset.DemoStem)
	require.NotNil(t, dataset.MetadataFile)
	assert.True(t, strings.HasSuffix(*dataset.MetadataFile, "metadata.json"))
	assert.True(t, filepath.IsAbs(dataset.DemoDir))

	rounds := findTable(t, dataset.Tables, "rounds")
	assert.EqualValues(t, 3, rounds.RowCount)
	assert.Greater(t, rounds.FileSizeBytes, int64(0))
	assert.Equal(t, "int64", rounds.Schema["round_number"])
	assert.Equal(t, "utf8", rounds.Schema["winning_side"])

	offsets := rounds.OffsetIndex["round_number"]
	require.NotEmpty(t, offsets)
	assert.Equal(t, model.IntValue(1), offsets[0].Value)
	assert.Equal(t, []int64{0}, offsets[0].Positions)

	bloom := rounds.BloomFilters["winning_side"]
	assert.Equal(t, 2048, bloom.NumBits)
	assert.Equal(t, 3, bloom.HashCount)
	assert.GreaterOrEqual(t, len(bloom.SetBits), 2)

	// numeric stats cover int and float columns, not strings
	players := findTable(t, dataset.Tables, "players")
	require.Contains(t, players.Stats, "min")
	assert.Equal(t, model.FloatValue(12.5), players.Stats["min"]["damage"])
	assert.Equal(t, model.FloatValue(55.0), players.Stats["max"]["damage"])
	assert.NotContains(t, players.Stats["min"], "player_id")
}

func TestBuildManifestDeterministic(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)

	strategy := &model.IndexingStrategy{
		OffsetColumns:      map[string][]string{"*": {"round_number"}},
		BloomFilterColumns: map[string][]string{"*": {"winning_side", "player_id"}},
		NumericStatistics:  true,
	}
	indexer, err := New(root, strategy)
	require.NoError(t, err)

	first, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)
	second, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	// everything except the generation timestamp is byte-for-byte stable
	first.GeneratedAt = ""
	second.GeneratedAt = ""
	assert.Equal(t, first, second)
}

func TestOffsetIndexPartitionsAllRows(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	l := layout.New(root)
	require.NoError(t, l.EnsureRoot())
	writeTable(t, l, "demo", "kills", mustFrame(t,
		frame.NewStringColumn("attacker_side", []string{"CT", "T", "CT", "T", "T", "CT"}, nil),
	))

	indexer, err := New(root, &model.IndexingStrategy{
		OffsetColumns: map[string][]string{"kills": {"attacker_side"}},
	})
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	entries := manifest.Datasets[0].Tables[0].OffsetIndex["attacker_side"]
	require.Len(t, entries, 2)
	// sorted by value ascending
	assert.Equal(t, model.StringValue("CT"), entries[0].Value)
	assert.Equal(t, model.StringValue("T"), entries[1].Value)
	assert.Equal(t, []int64{0, 2, 5}, entries[0].Positions)
	assert.Equal(t, []int64{1, 3, 4}, entries[1].Positions)

	// union of positions is exactly 0..row_count-1, no overlap
	seen := map[int64]int{}
	for _, e := range entries {
		for _, pos := range e.Positions {
			seen[pos]++
		}
	}
	for i := int64(0); i < 6; i++ {
		assert.Equal(t, 1, seen[i], "row %d must appear exactly once", i)
	}
}

func TestWildcardAndExactColumnsUnion(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	l := layout.New(root)
	require.NoError(t, l.EnsureRoot())
	writeTable(t, l, "demo", "rounds", mustFrame(t,
		frame.NewInt64Column("a", []int64{1, 2}, nil),
		frame.NewInt64Column("b", []int64{3, 4}, nil),
	))
	writeTable(t, l, "demo", "other", mustFrame(t,
		frame.NewInt64Column("a", []int64{5, 6}, nil),
		frame.NewInt64Column("b", []int64{7, 8}, nil),
	))

	indexer, err := New(root, &model.IndexingStrategy{
		OffsetColumns: map[string][]string{"*": {"a"}, "rounds": {"b"}},
	})
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	tables := manifest.Datasets[0].Tables
	rounds := findTable(t, tables, "rounds")
	assert.Contains(t, rounds.OffsetIndex, "a")
	assert.Contains(t, rounds.OffsetIndex, "b")

	other := findTable(t, tables, "other")
	assert.Contains(t, other.OffsetIndex, "a")
	assert.NotContains(t, other.OffsetIndex, "b")
}

func TestMissingStrategyColumnsAreSkipped(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	l := layout.New(root)
	require.NoError(t, l.EnsureRoot())
	writeTable(t, l, "demo", "rounds", mustFrame(t,
		frame.NewInt64Column("round_number", []int64{1}, nil),
	))

	indexer, err := New(root, &model.IndexingStrategy{
		OffsetColumns:      map[string][]string{"rounds": {"no_such_column"}},
		BloomFilterColumns: map[string][]string{"rounds": {"also_missing"}},
	})
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	table := manifest.Datasets[0].Tables[0]
	assert.Empty(t, table.OffsetIndex)
	assert.Empty(t, table.BloomFilters)
}

func TestEmptyAndUningestedDemosAreOmitted(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)
	l := layout.New(root)

	// tables dir exists but holds no table files
	_, err := l.TablesDir("aborted_demo")
	require.NoError(t, err)
	// demo dir without a tables dir at all
	_, err = l.DemoDir("bare_demo")
	require.NoError(t, err)

	indexer, err := New(root, nil)
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, manifest.DatasetCount)
	require.Len(t, manifest.Datasets, 1)
	assert.Equal(t, "match_inferno", manifest.Datasets[0].DemoStem)
}

func TestMalformedTableAbortsBuild(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)
	l := layout.New(root)

	_, err := l.TablesDir("broken_demo")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.TablePath("broken_demo", "junk"), []byte("not parquet"), 0o644))

	indexer, err := New(root, nil)
	require.NoError(t, err)

	_, err = indexer.BuildManifest(context.Background())
	assert.Error(t, err)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(file, nil)
	assert.Error(t, err)
}

func TestDemoFilterSelectsByMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)
	l := layout.New(root)
	writeTable(t, l, "match_mirage", "rounds", mustFrame(t,
		frame.NewInt64Column("round_number", []int64{1}, nil),
	))
	require.NoError(t, os.WriteFile(l.MetadataPath("match_mirage"), []byte(`{"map": "de_mirage"}`), 0o644))

	indexer, err := New(root, nil, WithDemoFilter(`metadata.map == "de_inferno"`))
	require.NoError(t, err)

	manifest, err := indexer.BuildManifest(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, manifest.DatasetCount)
	assert.Equal(t, "match_inferno", manifest.Datasets[0].DemoStem)

	_, err = New(root, nil, WithDemoFilter("not a valid ((("))
	assert.Error(t, err)
}

func TestWriteManifestPersistsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "processed")
	createProcessedDemo(t, root)

	indexer, err := New(root, nil)
	require.NoError(t, err)

	path, err := indexer.WriteManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "_manifest.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, jsoniter.Unmarshal(raw, &stored))
	assert.EqualValues(t, 1, stored["dataset_count"])
	datasets := stored["datasets"].([]any)
	first := datasets[0].(map[string]any)
	assert.Equal(t, "match_inferno", first["demo_stem"])
	assert.NotEmpty(t, stored["generated_at"])

	// overwrite on rerun, no merge
	path2, err := indexer.WriteManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, path2)
}
