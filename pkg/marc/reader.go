package marc

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader decodes consecutive binary MARC records from a stream, e.g. a
// .mrc export holding a whole batch.
type Reader struct {
	r io.Reader
}

// NewReader returns a Reader decoding records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next record in the stream, or io.EOF when the
// stream is exhausted.
func (r *Reader) Next() (*Record, error) {
	// The first 5 leader bytes carry the total record length
	prefix := make([]byte, 5)
	if _, err := io.ReadFull(r.r, prefix); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated record length", ErrInvalidRecord)
		}
		return nil, err
	}

	length, err := strconv.Atoi(strings.TrimSpace(string(prefix)))
	if err != nil || length <= len(prefix) {
		return nil, fmt.Errorf("%w: bad record length %q", ErrInvalidRecord, prefix)
	}

	data := make([]byte, length)
	copy(data, prefix)
	if _, err := io.ReadFull(r.r, data[len(prefix):]); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrInvalidRecord)
	}
	if data[len(data)-1] != recordTerminator {
		return nil, fmt.Errorf("%w: record not terminated", ErrInvalidRecord)
	}

	return DecodeRecord(data)
}

// DecodeAll reads every record in the stream.
func DecodeAll(r io.Reader) ([]*Record, error) {
	reader := NewReader(r)
	var records []*Record
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}
