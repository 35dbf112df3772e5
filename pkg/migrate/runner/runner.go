// Package runner reads CSV migration sources and applies per-field steps to
// each row, one row at a time.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

// ErrUnknownMigration indicates a migration ID with no registered definition.
var ErrUnknownMigration = errors.New("unknown migration")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Field maps source columns through steps into a destination property.
//
// A single source column yields its string value; several columns yield a
// []string in column order, e.g. [uri, name] for Asset.
type Field struct {
	Destination string
	Source      []string
	Steps       []Step
}

// Migration is a named list of fields applied to every source row.
type Migration struct {
	ID     string
	Label  string
	Fields []Field
}

// Result summarizes a run.
type Result struct {
	MigrationID string         `json:"migration_id"`
	Source      string         `json:"source,omitempty"`
	Processed   int            `json:"processed"`
	Failed      int            `json:"failed"`
	Messages    int            `json:"messages"`
	Duration    time.Duration  `json:"duration"`
	Rows        []*migrate.Row `json:"rows,omitempty"`
}

// Runner executes migrations.
type Runner struct {
	store      migrate.EntityStore
	stores     map[string]migrate.BlobStore
	fs         afero.Fs
	sink       migrate.MessageSink
	logger     *slog.Logger
	migrations map[string]Migration
}

// Option configures a Runner.
type Option func(*Runner)

// WithBlobStores sets the blob stores source URIs are read from.
func WithBlobStores(stores map[string]migrate.BlobStore) Option {
	return func(r *Runner) {
		for scheme, store := range stores {
			r.stores[strings.ToLower(scheme)] = store
		}
	}
}

// WithFs sets the filesystem local source paths are read from.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithMessageSink sets the sink step errors are reported to.
func WithMessageSink(sink migrate.MessageSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMigrations registers migration definitions.
func WithMigrations(migrations ...Migration) Option {
	return func(r *Runner) {
		for _, m := range migrations {
			r.migrations[m.ID] = m
		}
	}
}

// New creates a Runner. The entity store supplies migration source paths.
func New(store migrate.EntityStore, opts ...Option) (*Runner, error) {
	if store == nil {
		return nil, errors.New("entity store is required")
	}

	r := &Runner{
		store:      store,
		stores:     make(map[string]migrate.BlobStore),
		migrations: make(map[string]Migration),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.sink == nil {
		r.sink = migrate.NewRowMessageSink()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "runner")
	return r, nil
}

// Migrations returns the registered migration IDs in sorted order.
func (r *Runner) Migrations() []string {
	ids := make([]string, 0, len(r.migrations))
	for id := range r.migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Migration returns the registered definition for id.
func (r *Runner) Migration(id string) (Migration, bool) {
	m, ok := r.migrations[id]
	return m, ok
}

// RunMigration runs a registered migration against its configured source.
func (r *Runner) RunMigration(ctx context.Context, id string) (*Result, error) {
	m, ok := r.migrations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, id)
	}

	source, err := r.store.GetMigrationSource(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := r.open(ctx, source.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result, err := r.Run(ctx, m, reader)
	if result != nil {
		result.Source = source.Path
	}
	return result, err
}

func (r *Runner) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if scheme, key, err := migrate.SplitURI(path); err == nil {
		store, ok := r.stores[scheme]
		if !ok {
			return nil, fmt.Errorf("%w: %s", migrate.ErrStoreNotFound, scheme)
		}
		reader, err := store.Download(ctx, key)
		if err != nil {
			return nil, &migrate.StorageError{Backend: scheme, Key: key, Op: "download", Err: err}
		}
		return reader, nil
	}

	file, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", path, err)
	}
	return file, nil
}

// Run applies m to every row read from a CSV stream whose first record is
// the header. Step failures are recorded on their row; only read errors and
// cancellation stop the run.
func (r *Runner) Run(ctx context.Context, m Migration, source io.Reader) (*Result, error) {
	started := time.Now()
	result := &Result{MigrationID: m.ID}

	br := bufio.NewReader(source)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	line, _ := cr.FieldPos(0)

	for index := 0; ; {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(started)
			return result, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Duration = time.Since(started)
			return result, readError(line, err)
		}
		line, _ = cr.FieldPos(0)
		if isEmptyRow(record) {
			continue
		}

		row := migrate.NewRow(index, toSource(header, record))
		index++
		r.processRow(ctx, m, row)

		result.Processed++
		result.Messages += len(row.Messages)
		if row.HasErrors() {
			result.Failed++
		}
		result.Rows = append(result.Rows, row)
	}

	result.Duration = time.Since(started)
	r.logger.Info("Migration finished",
		"migration", m.ID,
		"processed", result.Processed,
		"failed", result.Failed,
		"messages", result.Messages,
		"duration", result.Duration)
	return result, nil
}

// readError reports the CSV line a read failed on. Parse errors carry it;
// other errors are reported against the line after the last record read.
func readError(lastLine int, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("failed to read line %d: %w", pe.StartLine, err)
	}
	return fmt.Errorf("failed to read line %d: %w", lastLine+1, err)
}

func (r *Runner) processRow(ctx context.Context, m Migration, row *migrate.Row) {
	for _, field := range m.Fields {
		value := fieldValue(row, field.Source)

		var err error
		for _, step := range field.Steps {
			if value, err = step(ctx, row, value); err != nil {
				break
			}
		}
		if err != nil {
			r.logger.Error("Field processing failed", "migration", m.ID, "row", row.Index, "field", field.Destination, "error", err)
			r.sink.SaveMessage(ctx, row, migrate.MessageError, fmt.Sprintf("%s: %v", field.Destination, err))
			continue
		}
		if value != nil {
			row.SetDestination(field.Destination, value)
		}
	}
}

func fieldValue(row *migrate.Row, keys []string) any {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		return row.SourceValue(keys[0])
	}
	values := make([]string, len(keys))
	for i, key := range keys {
		values[i] = row.SourceValue(key)
	}
	return values
}

func toSource(header, record []string) map[string]string {
	source := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			source[name] = record[i]
		} else {
			source[name] = ""
		}
	}
	return source
}

func isEmptyRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
