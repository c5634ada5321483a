// Package marc decodes binary MARC 21 bibliographic records (ISO 2709)
// and maps them onto the standardized Book model so library records can
// be imported into the catalog.
package marc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/internetarchive/olclient/internal/logger"
)

// ISO 2709 framing bytes
const (
	fieldTerminator    = 0x1e
	recordTerminator   = 0x1d
	subfieldDelimiter  = 0x1f
	leaderLength       = 24
	directoryEntrySize = 12
)

// ErrInvalidRecord is returned when the input is not a well-formed
// ISO 2709 record.
var ErrInvalidRecord = errors.New("invalid marc record")

// Subfield is one coded value of a data field, e.g. code 'a' of field
// 245 holds the title proper.
type Subfield struct {
	Code  byte
	Value string
}

// Field is one line of a MARC record. Control fields (tag below 010)
// carry Value; data fields carry Indicators and Subfields.
type Field struct {
	Tag        string
	Value      string
	Indicators [2]byte
	Subfields  []Subfield
}

// Subfield returns the first value with the given code, or "".
func (f *Field) Subfield(code byte) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// Record is a decoded MARC bibliographic record.
type Record struct {
	Leader string
	Fields []Field
}

// Field returns the first field with the given tag, or nil.
func (r *Record) Field(tag string) *Field {
	for i := range r.Fields {
		if r.Fields[i].Tag == tag {
			return &r.Fields[i]
		}
	}
	return nil
}

// FieldsByTag returns every field with the given tag.
func (r *Record) FieldsByTag(tag string) []*Field {
	var out []*Field
	for i := range r.Fields {
		if r.Fields[i].Tag == tag {
			out = append(out, &r.Fields[i])
		}
	}
	return out
}

// DecodeRecord parses one binary MARC record. Directory entries whose
// data falls outside the record are skipped rather than failing the
// whole record; libraries emit these often enough that strictness
// would reject usable data.
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) < leaderLength {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the leader", ErrInvalidRecord, len(data))
	}

	leader := string(data[:leaderLength])
	baseAddress, err := strconv.Atoi(strings.TrimSpace(leader[12:17]))
	if err != nil || baseAddress <= leaderLength || baseAddress > len(data) {
		return nil, fmt.Errorf("%w: bad base address %q", ErrInvalidRecord, leader[12:17])
	}

	// Directory runs from the leader to its field terminator
	dirEnd := baseAddress - 1
	if dirEnd < leaderLength || data[dirEnd] != fieldTerminator {
		return nil, fmt.Errorf("%w: directory not terminated", ErrInvalidRecord)
	}
	directory := data[leaderLength:dirEnd]
	if len(directory)%directoryEntrySize != 0 {
		return nil, fmt.Errorf("%w: directory length %d not a multiple of %d", ErrInvalidRecord, len(directory), directoryEntrySize)
	}

	log := logger.Get()
	record := &Record{Leader: leader}
	for i := 0; i+directoryEntrySize <= len(directory); i += directoryEntrySize {
		entry := directory[i : i+directoryEntrySize]
		tag := string(entry[0:3])
		length, lerr := strconv.Atoi(strings.TrimSpace(string(entry[3:7])))
		start, serr := strconv.Atoi(strings.TrimSpace(string(entry[7:12])))
		if lerr != nil || serr != nil {
			log.Warn("Skipping malformed directory entry", map[string]interface{}{
				"tag":   tag,
				"entry": string(entry),
			})
			continue
		}

		from := baseAddress + start
		to := from + length
		if from < baseAddress || to > len(data) {
			log.Warn("Skipping directory entry outside record bounds", map[string]interface{}{
				"tag":    tag,
				"start":  start,
				"length": length,
			})
			continue
		}

		field := data[from:to]
		// Trim the field terminator
		if len(field) > 0 && field[len(field)-1] == fieldTerminator {
			field = field[:len(field)-1]
		}
		record.Fields = append(record.Fields, decodeField(tag, field))
	}

	return record, nil
}

// decodeField splits a field's bytes into indicators and subfields.
// Tags below 010 are control fields holding a single value.
func decodeField(tag string, data []byte) Field {
	if tag < "010" {
		return Field{Tag: tag, Value: string(data)}
	}

	field := Field{Tag: tag}
	if len(data) >= 2 {
		field.Indicators[0] = data[0]
		field.Indicators[1] = data[1]
		data = data[2:]
	}

	for _, part := range strings.Split(string(data), string(rune(subfieldDelimiter))) {
		if len(part) < 2 {
			continue
		}
		field.Subfields = append(field.Subfields, Subfield{
			Code:  part[0],
			Value: part[1:],
		})
	}
	return field
}
