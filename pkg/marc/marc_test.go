package marc

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internetarchive/olclient/pkg/models"
)

// rawField is a (tag, encoded field body) pair for building test records
type rawField struct {
	tag  string
	body string
}

func sf(code byte, value string) string {
	return string(rune(subfieldDelimiter)) + string(code) + value
}

// buildRecord assembles a well-formed ISO 2709 record from fields
func buildRecord(t *testing.T, fields []rawField) []byte {
	t.Helper()

	var directory, body bytes.Buffer
	for _, f := range fields {
		data := append([]byte(f.body), fieldTerminator)
		fmt.Fprintf(&directory, "%s%04d%05d", f.tag, len(data), body.Len())
		body.Write(data)
	}
	directory.WriteByte(fieldTerminator)

	baseAddress := leaderLength + directory.Len()
	total := baseAddress + body.Len() + 1

	leader := fmt.Sprintf("%05dnam a22%05d7a 4500", total, baseAddress)
	require.Len(t, leader, leaderLength)

	var record bytes.Buffer
	record.WriteString(leader)
	record.Write(directory.Bytes())
	record.Write(body.Bytes())
	record.WriteByte(recordTerminator)
	return record.Bytes()
}

func exampleFields() []rawField {
	return []rawField{
		{"001", "ocm12345678"},
		{"020", "  " + sf('a', "0805014012 (pbk.)")},
		{"100", "1 " + sf('a', "Fromm, Erich,") + sf('d', "1900-1980.")},
		{"245", "10" + sf('a', "Wege aus einer kranken Gesellschaft :") + sf('b', "eine sozialpsychologische Studie /")},
		{"260", "  " + sf('a', "Frankfurt :") + sf('b', "Ullstein,") + sf('c', "1982.")},
	}
}

func TestDecodeRecord(t *testing.T) {
	record, err := DecodeRecord(buildRecord(t, exampleFields()))
	require.NoError(t, err)
	require.Len(t, record.Fields, 5)

	control := record.Field("001")
	require.NotNil(t, control)
	assert.Equal(t, "ocm12345678", control.Value)
	assert.Empty(t, control.Subfields)

	title := record.Field("245")
	require.NotNil(t, title)
	assert.Equal(t, byte('1'), title.Indicators[0])
	assert.Equal(t, "Wege aus einer kranken Gesellschaft :", title.Subfield('a'))
	assert.Equal(t, "", title.Subfield('z'))
}

func TestDecodeRecordTooShort(t *testing.T) {
	_, err := DecodeRecord([]byte("00005"))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeRecordBadBaseAddress(t *testing.T) {
	data := buildRecord(t, exampleFields())
	copy(data[12:17], "99999")
	_, err := DecodeRecord(data)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeRecordSkipsOutOfBoundsEntry(t *testing.T) {
	data := buildRecord(t, exampleFields())
	// Point the first directory entry's start past the record end
	copy(data[leaderLength+7:leaderLength+12], "99999")

	record, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Len(t, record.Fields, 4)
	assert.Nil(t, record.Field("001"))
	assert.NotNil(t, record.Field("245"))
}

func TestAuthorName(t *testing.T) {
	record, err := DecodeRecord(buildRecord(t, exampleFields()))
	require.NoError(t, err)
	assert.Equal(t, "Erich Fromm", record.AuthorName())
}

func TestISBN(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"with qualifier", "0805014012 (pbk.)", "0805014012"},
		{"hyphenated", "978-0-8050-1401-3", "9780805014013"},
		{"bare", "0805014012", "0805014012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := DecodeRecord(buildRecord(t, []rawField{
				{"020", "  " + sf('a', tt.value)},
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.ISBN())
		})
	}
}

func TestToBook(t *testing.T) {
	record, err := DecodeRecord(buildRecord(t, exampleFields()))
	require.NoError(t, err)

	book, err := record.ToBook()
	require.NoError(t, err)
	assert.Equal(t, "Wege aus einer kranken Gesellschaft", book.Title)
	assert.Equal(t, "eine sozialpsychologische Studie", book.Subtitle)
	assert.Equal(t, "Ullstein", book.Publisher)
	assert.Equal(t, "1982", book.PublishDate)
	assert.Equal(t, "Frankfurt", book.PublishLocation)
	assert.Equal(t, []string{"0805014012"}, book.Identifiers[models.IDISBN10])

	author := book.PrimaryAuthor()
	require.NotNil(t, author)
	assert.Equal(t, "Erich Fromm", author.Name)
}

func TestToBookISBN13(t *testing.T) {
	record, err := DecodeRecord(buildRecord(t, []rawField{
		{"020", "  " + sf('a', "978-0-8050-1401-3")},
		{"245", "10" + sf('a', "Some Title")},
	}))
	require.NoError(t, err)

	book, err := record.ToBook()
	require.NoError(t, err)
	assert.Equal(t, []string{"9780805014013"}, book.Identifiers[models.IDISBN13])
	assert.Empty(t, book.Identifiers[models.IDISBN10])
	assert.Nil(t, book.PrimaryAuthor())
}

func TestReader(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildRecord(t, exampleFields()))
	stream.Write(buildRecord(t, []rawField{
		{"245", "10" + sf('a', "Second Record")},
	}))

	records, err := DecodeAll(&stream)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Second Record", records[1].Field("245").Subfield('a'))
}

func TestReaderEmptyStream(t *testing.T) {
	records, err := DecodeAll(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReaderTruncatedRecord(t *testing.T) {
	data := buildRecord(t, exampleFields())
	reader := NewReader(bytes.NewReader(data[:len(data)-10]))

	_, err := reader.Next()
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestReaderPropagatesEOF(t *testing.T) {
	reader := NewReader(bytes.NewReader(buildRecord(t, exampleFields())))

	_, err := reader.Next()
	require.NoError(t, err)
	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}
