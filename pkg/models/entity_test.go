package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookValidatesIdentifiers(t *testing.T) {
	_, err := NewBook("Bad", Identifiers{"invalid_key": {"1"}})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	book, err := NewBook("Good", Identifiers{IDOLID: {"OL2514725W"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"OL2514725W"}, book.Identifiers[IDOLID])
}

func TestAddIdentifier(t *testing.T) {
	book, err := NewBook("Test", Identifiers{IDOLID: {"OL2514725W"}})
	require.NoError(t, err)

	require.NoError(t, book.AddIdentifier(IDOCLC, "4963507"))
	require.NoError(t, book.AddIdentifier(IDOLID, "OL20536769M"))
	assert.Equal(t, []string{"4963507"}, book.Identifiers[IDOCLC])
	assert.Equal(t, []string{"OL2514725W", "OL20536769M"}, book.Identifiers[IDOLID])

	// duplicates are ignored
	require.NoError(t, book.AddIdentifier(IDOCLC, "4963507"))
	assert.Len(t, book.Identifiers[IDOCLC], 1)

	assert.ErrorIs(t, book.AddIdentifier("nope", "1"), ErrInvalidIdentifier)
}

func TestCanonicalTitle(t *testing.T) {
	book := &Book{Title: "The Autobiography of: Benjamin Franklin"}
	assert.Equal(t, "the autobiography of benjamin franklin", book.CanonicalTitle())
}

func TestPrimaryAuthor(t *testing.T) {
	book := &Book{}
	assert.Nil(t, book.PrimaryAuthor())

	first, err := NewAuthor("Benjamin Franklin")
	require.NoError(t, err)
	second, err := NewAuthor("Walter Isaacson")
	require.NoError(t, err)
	book.Authors = []*Author{first, second}
	assert.Equal(t, "Benjamin Franklin", book.PrimaryAuthor().Name)
}

func TestNewAuthorRejectsCommas(t *testing.T) {
	_, err := NewAuthor("Franklin, Benjamin")
	assert.Error(t, err)

	author, err := NewAuthor("Benjamin Franklin")
	require.NoError(t, err)
	assert.Equal(t, "Benjamin Franklin", author.Name)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		olid     string
		expected Kind
		wantErr  bool
	}{
		{"OL123M", KindEdition, false},
		{"OL2514725W", KindWork, false},
		{"OL39307A", KindAuthor, false},
		{"OL123X", "", true},
		{"garbage", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.olid, func(t *testing.T) {
			kind, err := KindOf(tt.olid)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestFullKey(t *testing.T) {
	key, err := FullKey("OL123M")
	require.NoError(t, err)
	assert.Equal(t, "/books/OL123M", key)

	key, err = FullKey("OL123W")
	require.NoError(t, err)
	assert.Equal(t, "/works/OL123W", key)

	_, err = FullKey("bogus")
	assert.Error(t, err)
}

func TestExtractOLID(t *testing.T) {
	url := "https://openlibrary.org/books/OL25943366M/Secret_Garden"
	assert.Equal(t, "OL25943366M", ExtractOLID(url, KindEdition))
	assert.Equal(t, "", ExtractOLID(url, KindWork))
	assert.Equal(t, "OL1W", ExtractOLID("/works/OL1W", KindWork))
	assert.Equal(t, "OL2514725A", ExtractOLID("/authors/OL2514725A", KindAuthor))
	assert.Equal(t, "", ExtractOLID(url, Kind("shelf")))
}

func TestOLIDFromKey(t *testing.T) {
	assert.Equal(t, "OL1W", OLIDFromKey("/works/OL1W"))
	assert.Equal(t, "OL1W", OLIDFromKey("OL1W"))
}
