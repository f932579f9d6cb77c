// Package scanlog records scan results for analytics. Writes happen in the
// background and never fail the scan that produced them.
package scanlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/artlens/orbmatch"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Record is one logged scan.
type Record struct {
	ID        string                 `json:"id" bson:"_id"`
	Label     string                 `json:"label" bson:"label"`
	Score     float64                `json:"score" bson:"score"`
	Top       []orbmatch.Alternative `json:"top" bson:"top"`
	Timestamp time.Time              `json:"ts" bson:"ts"`
}

// NewRecord returns a record of the result with a fresh scan ID.
func NewRecord(result orbmatch.MatchResult, now time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Label:     result.Label,
		Score:     result.Score,
		Top:       result.Alternatives,
		Timestamp: now.UTC(),
	}
}

// Sink persists records.
type Sink interface {
	Write(ctx context.Context, record Record) error
}

var (
	_ Sink = (*Mongo)(nil)
	_ Sink = (*File)(nil)
	_ Sink = Nop{}
)

// Mongo inserts one document per record.
type Mongo struct {
	collection *mongo.Collection
}

func NewMongo(collection *mongo.Collection) *Mongo {
	return &Mongo{collection: collection}
}

func (m *Mongo) Write(ctx context.Context, record Record) error {
	if _, err := m.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert scan log: %w", err)
	}
	return nil
}

// File appends records as JSON lines.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Write(_ context.Context, record Record) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal scan log: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open scan log: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("write scan log: %w", err)
	}
	return file.Close()
}

// Nop discards records.
type Nop struct{}

func (Nop) Write(context.Context, Record) error { return nil }

// Logger writes records to a sink in the background.
type Logger struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New returns a Logger writing to sink. Each write gets its own timeout.
func New(sink Sink, timeout time.Duration, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{sink: sink, timeout: timeout, logger: logger}
}

// Log schedules a write of the record and returns immediately. A failed
// write is logged and otherwise dropped.
func (l *Logger) Log(record Record) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx := context.Background()
		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		if err := l.sink.Write(ctx, record); err != nil {
			l.logger.Warn("scan log write failed", "scan_id", record.ID, "error", err)
		}
	}()
}

// Wait blocks until all scheduled writes are done.
func (l *Logger) Wait() {
	l.wg.Wait()
}
