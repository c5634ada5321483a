// Package bots is a small framework for bulk catalog edits that follow
// one pattern: scan a data dump for records matching a condition, fix
// each match, and log every modification. Jobs run dry by default so a
// bad predicate cannot damage the catalog.
package bots

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/internetarchive/olclient/internal/logger"
)

// ErrLimitReached is returned by Save once the job has performed its
// configured number of edits.
var ErrLimitReached = errors.New("edit limit reached")

// Job tracks the state of one bulk-edit run.
type Job struct {
	// Name identifies the job in logs
	Name string
	// WriteChanges enables real edits; jobs are dry runs by default
	WriteChanges bool
	// Limit caps the number of edits; 0 means unlimited
	Limit int

	changed int
	logger  *logger.Logger
}

// NewJob creates a dry-run job with the given edit limit.
func NewJob(name string, writeChanges bool, limit int) *Job {
	return &Job{
		Name:         name,
		WriteChanges: writeChanges,
		Limit:        limit,
		logger:       logger.Get().With(map[string]interface{}{"job": name}),
	}
}

// Changed returns how many edits the job has counted so far, including
// edits skipped because the job is a dry run.
func (j *Job) Changed() int {
	return j.changed
}

// Logger returns the job's logger.
func (j *Job) Logger() *logger.Logger {
	return j.logger
}

// DeclareWriteMode logs whether the run can modify the catalog. Call
// it at the start of every job so the log records the mode.
func (j *Job) DeclareWriteMode() {
	if j.WriteChanges {
		j.logger.Info("write_changes is enabled, permanent modifications may be made", nil)
	} else {
		j.logger.Info("write_changes is disabled, no modifications will be made", nil)
	}
}

// Save performs one edit through saveFn, honoring dry-run mode and the
// edit limit. The edit counts against the limit either way, so a dry
// run exercises the same records a real run would. Returns
// ErrLimitReached when the job should stop.
func (j *Job) Save(saveFn func() error) error {
	if j.WriteChanges {
		if err := saveFn(); err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
	} else {
		j.logger.Info("Modification skipped, write_changes is disabled", nil)
	}

	j.changed++
	if j.Limit > 0 && j.changed >= j.Limit {
		j.logger.Info("Modification limit reached", map[string]interface{}{
			"limit": j.Limit,
		})
		return ErrLimitReached
	}
	return nil
}

// DumpRow is one line of an Open Library data dump: four metadata
// columns and the record's JSON document.
type DumpRow struct {
	Type         string
	Key          string
	Revision     string
	LastModified string
	JSON         json.RawMessage
}

// ParseDumpRow splits a tab-separated dump line. The fifth column is
// the record's JSON document.
func ParseDumpRow(row string) (*DumpRow, error) {
	cols := strings.Split(strings.TrimRight(row, "\n"), "\t")
	if len(cols) < 5 {
		return nil, fmt.Errorf("dump row has %d columns, want 5", len(cols))
	}
	if !json.Valid([]byte(cols[4])) {
		return nil, fmt.Errorf("dump row carries invalid JSON for %s", cols[1])
	}
	return &DumpRow{
		Type:         cols[0],
		Key:          cols[1],
		Revision:     cols[2],
		LastModified: cols[3],
		JSON:         json.RawMessage(cols[4]),
	}, nil
}

// ProcessDump streams dump rows from r into fn, stopping early when fn
// returns ErrLimitReached. Malformed rows are logged and skipped.
func (j *Job) ProcessDump(r io.Reader, fn func(*DumpRow) error) error {
	scanner := bufio.NewScanner(r)
	// Catalog documents can be large
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		row, err := ParseDumpRow(scanner.Text())
		if err != nil {
			j.logger.Warn("Skipping malformed dump row", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}
		if err := fn(row); err != nil {
			if errors.Is(err, ErrLimitReached) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}
