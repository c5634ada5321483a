// Package models holds the project-independent bibliographic data
// structures used to move records between Open Library and partner
// services or data sources.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentifierType names a bibliographic identifier scheme.
type IdentifierType string

// Identifier types accepted on entities.
const (
	IDOLID         IdentifierType = "olid"
	IDOCLC         IdentifierType = "oclc"
	IDISBN10       IdentifierType = "isbn_10"
	IDISBN13       IdentifierType = "isbn_13"
	IDISBNs        IdentifierType = "isbns"
	IDLCCN         IdentifierType = "lccn"
	IDOcaid        IdentifierType = "ocaid"
	IDGoodreads    IdentifierType = "goodreads"
	IDLibraryThing IdentifierType = "librarything"
	IDWikidata     IdentifierType = "wikidata"
	IDBookBrainz   IdentifierType = "bookbrainz"
)

var validIdentifiers = map[IdentifierType]struct{}{
	IDOLID:         {},
	IDOCLC:         {},
	IDISBN10:       {},
	IDISBN13:       {},
	IDISBNs:        {},
	IDLCCN:         {},
	IDOcaid:        {},
	IDGoodreads:    {},
	IDLibraryThing: {},
	IDWikidata:     {},
	IDBookBrainz:   {},
}

// Identifiers maps identifier types to their values for an entity.
// A single entity can carry several values of the same type, e.g. the
// olids of a work and of one of its editions.
type Identifiers map[IdentifierType][]string

// Validate checks that every identifier type is a known scheme.
func (ids Identifiers) Validate() error {
	for idType := range ids {
		if _, ok := validIdentifiers[idType]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, idType)
		}
	}
	return nil
}

// Add records an identifier value, de-duplicating per type.
func (ids Identifiers) Add(idType IdentifierType, value string) error {
	if _, ok := validIdentifiers[idType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, idType)
	}
	for _, existing := range ids[idType] {
		if existing == value {
			return nil
		}
	}
	ids[idType] = append(ids[idType], value)
	return nil
}

// ErrInvalidIdentifier is returned when an identifier type is not a
// recognized scheme.
var ErrInvalidIdentifier = fmt.Errorf("invalid identifier type")

// Author represents a book author and their identifiers.
type Author struct {
	Name        string      `json:"name"`
	Bio         string      `json:"bio,omitempty"`
	BirthDate   string      `json:"birth_date,omitempty"`
	DeathDate   string      `json:"death_date,omitempty"`
	Identifiers Identifiers `json:"identifiers,omitempty"`
}

// NewAuthor creates an Author, rejecting names in "Last, First" order.
// Open Library stores author names as "First Last".
func NewAuthor(name string) (*Author, error) {
	if strings.Contains(name, ",") {
		return nil, fmt.Errorf("%q is not a valid author name: no commas allowed (first last)", name)
	}
	return &Author{
		Name:        name,
		Identifiers: Identifiers{},
	}, nil
}

// AddIdentifier records an identifier for the author.
func (a *Author) AddIdentifier(idType IdentifierType, value string) error {
	if a.Identifiers == nil {
		a.Identifiers = Identifiers{}
	}
	return a.Identifiers.Add(idType, value)
}

// Book is the organizational model for standardizing MARC, Open Library,
// and other sources into a uniform format so records can be
// programmatically ingested and compared for similarity.
type Book struct {
	Title           string      `json:"title"`
	Subtitle        string      `json:"subtitle,omitempty"`
	Pages           int         `json:"number_of_pages,omitempty"`
	Authors         []*Author   `json:"authors,omitempty"`
	Publisher       string      `json:"publisher,omitempty"`
	PublishDate     string      `json:"publish_date,omitempty"`
	PublishLocation string      `json:"publish_location,omitempty"`
	Cover           string      `json:"cover,omitempty"`
	Identifiers     Identifiers `json:"identifiers,omitempty"`
}

// NewBook creates a Book with validated identifiers.
func NewBook(title string, identifiers Identifiers) (*Book, error) {
	if identifiers == nil {
		identifiers = Identifiers{}
	}
	if err := identifiers.Validate(); err != nil {
		return nil, err
	}
	return &Book{
		Title:       title,
		Identifiers: identifiers,
	}, nil
}

// AddIdentifier records an identifier for the book.
func (b *Book) AddIdentifier(idType IdentifierType, value string) error {
	if b.Identifiers == nil {
		b.Identifiers = Identifiers{}
	}
	return b.Identifiers.Add(idType, value)
}

var nonAlphanumericRE = regexp.MustCompile(`[^\s\w]+`)

// CanonicalTitle homogenizes the book title so titles from different
// sources can be compared.
func (b *Book) CanonicalTitle() string {
	return nonAlphanumericRE.ReplaceAllString(strings.ToLower(b.Title), "")
}

// PrimaryAuthor returns the first author, or nil if the book has none.
func (b *Book) PrimaryAuthor() *Author {
	if len(b.Authors) == 0 {
		return nil
	}
	return b.Authors[0]
}
