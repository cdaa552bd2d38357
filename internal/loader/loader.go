// Package loader reads delimited text files into entity lists.
//
// A BulkLoader is bound to one Parser. It never touches a database: its
// output is handed to store.RecordStore.SaveAll by the caller.
package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/recordstore/internal/logging"
	"github.com/google/uuid"
)

// ContextCheckInterval is how often (in lines) to check for context cancellation.
var ContextCheckInterval = 100

// MaxLineSize is the longest input line accepted, in bytes.
var MaxLineSize = 1024 * 1024

// Parser turns the fields of one input line into an entity.
type Parser[E any] interface {
	// Separator is the field delimiter, e.g. '\t' or ';'.
	Separator() rune
	// Parse builds an entity from one line's fields.
	Parse(fields []string) (E, error)
}

// Mode selects what happens to lines the parser rejects.
type Mode int

const (
	// StrictLines fails the whole load on the first malformed line.
	StrictLines Mode = iota
	// SkipMalformed logs and skips malformed lines.
	SkipMalformed
)

// LineError reports the input line that failed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Summary describes one completed load. Records counts non-blank lines.
type Summary struct {
	LoadID   string
	Charset  string
	Records  int
	Parsed   int
	Skipped  int
	Bytes    int64
	Duration time.Duration
}

// BulkLoader reads files into []E through a Parser.
type BulkLoader[E any] struct {
	parser Parser[E]
	mode   Mode
}

// New creates a loader for parser.
func New[E any](parser Parser[E], mode Mode) *BulkLoader[E] {
	return &BulkLoader[E]{parser: parser, mode: mode}
}

// Load reads the file at path, decoded with the named charset, and returns
// one entity per well-formed line.
func (l *BulkLoader[E]) Load(ctx context.Context, path, charsetName string) ([]E, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	items, _, err := l.read(ctx, f, charsetName)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return items, nil
}

// Read is Load for an already open source.
func (l *BulkLoader[E]) Read(ctx context.Context, r io.Reader, charsetName string) ([]E, error) {
	items, _, err := l.read(ctx, r, charsetName)
	return items, err
}

// ReadWithSummary is Read that also returns the load summary.
func (l *BulkLoader[E]) ReadWithSummary(ctx context.Context, r io.Reader, charsetName string) ([]E, Summary, error) {
	return l.read(ctx, r, charsetName)
}

// read splits the decoded input into physical lines and each line on the
// parser's separator. Quotes have no special meaning.
func (l *BulkLoader[E]) read(ctx context.Context, r io.Reader, charsetName string) ([]E, Summary, error) {
	start := time.Now()

	loadID := logging.LoadIDFromContext(ctx)
	if loadID == "" {
		loadID = uuid.New().String()
		ctx = logging.ContextWithLoadID(ctx, loadID)
	}
	logger := logging.FromContext(ctx)

	summary := Summary{LoadID: loadID}

	counting := NewCountingReader(r)
	decoded, canonical, err := decodingReader(NewBOMSkippingReader(counting), charsetName)
	if err != nil {
		return nil, summary, err
	}
	summary.Charset = canonical

	sc := bufio.NewScanner(decoded)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	sep := string(l.parser.Separator())

	items := make([]E, 0)
	line := 0
	for sc.Scan() {
		line++
		if line%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, summary, fmt.Errorf("load cancelled: %w", err)
			}
		}

		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		summary.Records++

		item, err := l.parser.Parse(strings.Split(text, sep))
		if err == nil {
			items = append(items, item)
			summary.Parsed++
			continue
		}

		if l.mode == SkipMalformed {
			summary.Skipped++
			logger.Warn("skipping malformed line", "line", line, "error", err)
			continue
		}
		return nil, summary, &LineError{Line: line, Err: err}
	}
	if err := sc.Err(); err != nil {
		return nil, summary, &LineError{Line: line + 1, Err: fmt.Errorf("reading input: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, summary, fmt.Errorf("load cancelled: %w", err)
	}

	summary.Bytes = counting.BytesRead
	summary.Duration = time.Since(start)

	logger.Info("file loaded",
		"charset", summary.Charset,
		"records", summary.Records,
		"parsed", summary.Parsed,
		"skipped", summary.Skipped,
		"bytes", summary.Bytes,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	return items, summary, nil
}
