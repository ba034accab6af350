// Package ingest discovers raw demo dumps under a source root, parses them
// through a DemoParser, and lands the resulting event tables as parquet
// files under the processed root. Raw .dem decoding itself is owned by
// external parser implementations; the built-in NDJSON adapter consumes
// pre-exported event dumps.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"demopipe/frame"
	"demopipe/layout"
	"demopipe/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrCorruptManifest signals that the existing ingestion manifest could not
// be decoded. It is surfaced as a data-integrity error instead of being
// silently discarded.
var ErrCorruptManifest = errors.New("ingest manifest is corrupted")

// Config guides demo discovery and ingestion.
type Config struct {
	// SourceRoot holds the raw demo dumps. Must exist.
	SourceRoot string
	// ProcessedRoot receives parquet tables and manifests. Created if
	// absent.
	ProcessedRoot string
	// AllowedSuffixes are the file endings considered demo dumps. Defaults
	// to the NDJSON event-dump suffix.
	AllowedSuffixes []string
}

// DefaultSuffix is the extension of NDJSON event dumps.
const DefaultSuffix = ".events.ndjson"

func (c *Config) Validate() error {
	st, err := os.Stat(c.SourceRoot)
	if err != nil {
		return fmt.Errorf("source root does not exist: %s", c.SourceRoot)
	}
	if !st.IsDir() {
		return fmt.Errorf("source root is not a directory: %s", c.SourceRoot)
	}
	if len(c.AllowedSuffixes) == 0 {
		c.AllowedSuffixes = []string{DefaultSuffix}
	}
	return os.MkdirAll(c.ProcessedRoot, 0o755)
}

// ParseResult is what a parser yields for one demo: per-event tables plus
// scalar match metadata.
type ParseResult struct {
	Tables   map[string]*frame.Frame
	Metadata map[string]any
}

// DemoParser turns one raw demo dump into structured tables. Implementations
// wrap external parsers.
type DemoParser interface {
	Name() string
	Parse(ctx context.Context, demoPath string) (*ParseResult, error)
}

// Ingestor orchestrates discovery, parsing and persistence.
type Ingestor struct {
	cfg    Config
	layout *layout.ProcessedLayout
	parser DemoParser
	log    zerolog.Logger
}

func New(cfg Config, parser DemoParser) (*Ingestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := layout.New(cfg.ProcessedRoot)
	if err := l.EnsureRoot(); err != nil {
		return nil, err
	}
	return &Ingestor{
		cfg:    cfg,
		layout: l,
		parser: parser,
		log:    log.With().Str("component", "ingest").Logger(),
	}, nil
}

// ListDemoFiles returns every demo dump under the source root, sorted.
func (in *Ingestor) ListDemoFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(in.cfg.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, suffix := range in.cfg.AllowedSuffixes {
			if strings.HasSuffix(d.Name(), suffix) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source root: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Ingest processes the given demo paths, or every discovered demo when paths
// is nil. Failures are logged and collected; processing continues over the
// remainder and one error naming every failed demo is returned at the end,
// wrapping the first cause.
func (in *Ingestor) Ingest(ctx context.Context, paths []string) error {
	if paths == nil {
		var err error
		paths, err = in.ListDemoFiles()
		if err != nil {
			return err
		}
	}

	var failedNames []string
	var firstErr error
	for _, demoPath := range paths {
		if err := in.processDemo(ctx, demoPath); err != nil {
			in.log.Error().Err(err).Str("demo", filepath.Base(demoPath)).Msg("ingestion failed")
			failedNames = append(failedNames, filepath.Base(demoPath))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}
	if firstErr != nil {
		return fmt.Errorf("failed to ingest demos: %s: %w", strings.Join(failedNames, ", "), firstErr)
	}
	return nil
}

func (in *Ingestor) stemOf(demoPath string) string {
	base := filepath.Base(demoPath)
	for _, suffix := range in.cfg.AllowedSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (in *Ingestor) processDemo(ctx context.Context, demoPath string) error {
	if _, err := os.Stat(demoPath); err != nil {
		return fmt.Errorf("demo file missing: %s", demoPath)
	}
	stem := in.stemOf(demoPath)
	in.log.Info().Str("demo", stem).Msg("parsing demo")

	result, err := in.parser.Parse(ctx, demoPath)
	if err != nil {
		return fmt.Errorf("parser %s failed for %s: %w", in.parser.Name(), filepath.Base(demoPath), err)
	}

	if _, err := in.layout.TablesDir(stem); err != nil {
		return err
	}

	tableNames := make([]string, 0, len(result.Tables))
	for name := range result.Tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	for _, name := range tableNames {
		if err := result.Tables[name].WriteParquet(in.layout.TablePath(stem, name)); err != nil {
			return fmt.Errorf("persist table %s: %w", name, err)
		}
	}

	if err := in.writeMetadata(stem, result.Metadata); err != nil {
		return err
	}
	if err := in.updateManifest(demoPath, stem, result.Metadata, tableNames); err != nil {
		return err
	}
	in.log.Info().Str("demo", stem).Int("tables", len(tableNames)).Msg("demo ingested")
	return nil
}

func (in *Ingestor) writeMetadata(stem string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return os.WriteFile(in.layout.MetadataPath(stem), data, 0o644)
}

// updateManifest upserts this demo's entry in the incremental ingestion
// manifest. Unlike the global dataset manifest this file is merged, so a
// corrupted existing file is a hard error.
func (in *Ingestor) updateManifest(demoPath, stem string, metadata map[string]any, tableNames []string) error {
	manifestPath := in.layout.IngestManifestPath()

	var entries []model.IngestManifestEntry
	if raw, err := os.ReadFile(manifestPath); err == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("%w: %s", ErrCorruptManifest, manifestPath)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.DemoStem == stem {
			in.log.Info().Str("demo", stem).Msg("updating existing manifest entry")
			continue
		}
		kept = append(kept, e)
	}

	source, err := filepath.Abs(demoPath)
	if err != nil {
		return err
	}
	outputDir, err := filepath.Abs(in.layout.DemoPath(stem))
	if err != nil {
		return err
	}
	tablesDir, err := filepath.Abs(in.layout.TablesPath(stem))
	if err != nil {
		return err
	}
	metadataFile, err := filepath.Abs(in.layout.MetadataPath(stem))
	if err != nil {
		return err
	}

	kept = append(kept, model.IngestManifestEntry{
		DemoName:     filepath.Base(demoPath),
		DemoStem:     stem,
		Source:       source,
		OutputDir:    outputDir,
		TablesDir:    tablesDir,
		MetadataFile: metadataFile,
		TotalRounds:  metadata["total_rounds"],
		Parser:       in.parser.Name(),
		Tables:       tableNames,
		ProcessedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})

	data, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := filepath.Join(in.layout.Root, "manifest."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, manifestPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
