// Package layout derives the on-disk structure of the processed dataset
// tree. All methods are pure functions of the root and their arguments; the
// Dir variants additionally create the directory they name.
package layout

import (
	"os"
	"path/filepath"
)

const (
	tablesDirName      = "tables"
	metadataFileName   = "metadata.json"
	globalManifestName = "_manifest.json"
	ingestManifestName = "manifest.json"

	// TableExt is the extension of every columnar table file.
	TableExt = ".parquet"
)

// ProcessedLayout resolves paths under a processed-output root:
//
//	<root>/<demo-stem>/metadata.json
//	<root>/<demo-stem>/tables/<table>.parquet
//	<root>/manifest.json   (ingestion-side, incremental)
//	<root>/_manifest.json  (global dataset manifest)
type ProcessedLayout struct {
	Root string
}

func New(root string) *ProcessedLayout {
	return &ProcessedLayout{Root: root}
}

// EnsureRoot creates the processed root (and parents) if absent. Idempotent.
func (l *ProcessedLayout) EnsureRoot() error {
	return os.MkdirAll(l.Root, 0o755)
}

// DemoPath returns root/<stem> without creating it.
func (l *ProcessedLayout) DemoPath(stem string) string {
	return filepath.Join(l.Root, stem)
}

// TablesPath returns root/<stem>/tables without creating it.
func (l *ProcessedLayout) TablesPath(stem string) string {
	return filepath.Join(l.Root, stem, tablesDirName)
}

// DemoDir returns root/<stem>, creating it if absent.
func (l *ProcessedLayout) DemoDir(stem string) (string, error) {
	p := l.DemoPath(stem)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}

// TablesDir returns root/<stem>/tables, creating it if absent.
func (l *ProcessedLayout) TablesDir(stem string) (string, error) {
	p := l.TablesPath(stem)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}

// TablePath returns root/<stem>/tables/<table>.parquet. The parent is
// assumed to exist from TablesDir.
func (l *ProcessedLayout) TablePath(stem, table string) string {
	return filepath.Join(l.TablesPath(stem), table+TableExt)
}

// MetadataPath returns root/<stem>/metadata.json.
func (l *ProcessedLayout) MetadataPath(stem string) string {
	return filepath.Join(l.Root, stem, metadataFileName)
}

// GlobalManifestPath returns root/_manifest.json.
func (l *ProcessedLayout) GlobalManifestPath() string {
	return filepath.Join(l.Root, globalManifestName)
}

// IngestManifestPath returns root/manifest.json.
func (l *ProcessedLayout) IngestManifestPath() string {
	return filepath.Join(l.Root, ingestManifestName)
}
