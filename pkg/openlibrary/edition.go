package openlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/internetarchive/olclient/pkg/models"
)

// Edition is a specific published instance of a work: a particular
// ISBN, publisher and print date. As with Work, unmodeled fields are
// carried through so saves round-trip cleanly.
type Edition struct {
	OLID          string
	WorkOLID      string
	Title         string
	Subtitle      string
	Publishers    []string
	PublishDate   string
	NumberOfPages int
	ISBN10        []string
	ISBN13        []string
	LCCN          []string
	OCLCNumbers   []string
	Ocaid         string
	AuthorOLIDs   []string
	Description   string
	Notes         string

	raw map[string]json.RawMessage
}

// UnmarshalJSON decodes the API's edition representation
func (e *Edition) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "type")
	e.OLID = models.OLIDFromKey(popString(raw, "key"))
	if works := popKeyRefs(raw, "works"); len(works) > 0 {
		e.WorkOLID = works[0]
	}
	e.Title = popString(raw, "title")
	e.Subtitle = popString(raw, "subtitle")
	e.Publishers = popStrings(raw, "publishers")
	e.PublishDate = popString(raw, "publish_date")
	e.NumberOfPages = popInt(raw, "number_of_pages")
	e.ISBN10 = popStrings(raw, "isbn_10")
	e.ISBN13 = popStrings(raw, "isbn_13")
	e.LCCN = popStrings(raw, "lccn")
	e.OCLCNumbers = popStrings(raw, "oclc_numbers")
	e.Ocaid = popString(raw, "ocaid")
	e.AuthorOLIDs = popKeyRefs(raw, "authors")
	e.Description = popText(raw, "description")
	e.Notes = popText(raw, "notes")
	e.raw = raw
	return nil
}

// Document returns the JSON document representation of the edition
// suitable for saving back via the API.
func (e *Edition) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(e.raw)+14)
	for k, v := range e.raw {
		doc[k] = v
	}
	doc["key"] = "/books/" + e.OLID
	doc["type"] = typeRef{Key: "/type/edition"}
	if e.WorkOLID != "" {
		doc["works"] = []keyRef{{Key: "/works/" + e.WorkOLID}}
	}
	if e.Title != "" {
		doc["title"] = e.Title
	}
	if e.Subtitle != "" {
		doc["subtitle"] = e.Subtitle
	}
	if len(e.Publishers) > 0 {
		doc["publishers"] = e.Publishers
	}
	if e.PublishDate != "" {
		doc["publish_date"] = e.PublishDate
	}
	if e.NumberOfPages > 0 {
		doc["number_of_pages"] = e.NumberOfPages
	}
	if len(e.ISBN10) > 0 {
		doc["isbn_10"] = e.ISBN10
	}
	if len(e.ISBN13) > 0 {
		doc["isbn_13"] = e.ISBN13
	}
	if len(e.LCCN) > 0 {
		doc["lccn"] = e.LCCN
	}
	if len(e.OCLCNumbers) > 0 {
		doc["oclc_numbers"] = e.OCLCNumbers
	}
	if e.Ocaid != "" {
		doc["ocaid"] = e.Ocaid
	}
	if len(e.AuthorOLIDs) > 0 {
		refs := make([]keyRef, 0, len(e.AuthorOLIDs))
		for _, olid := range e.AuthorOLIDs {
			refs = append(refs, keyRef{Key: "/authors/" + olid})
		}
		doc["authors"] = refs
	}
	if e.Description != "" {
		doc["description"] = textNode(e.Description)
	}
	if e.Notes != "" {
		doc["notes"] = textNode(e.Notes)
	}
	return doc
}

// MarshalJSON implements json.Marshaler
func (e *Edition) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Document())
}

// Key returns the edition's full catalog key
func (e *Edition) Key() string {
	return "/books/" + e.OLID
}

// Bibkey names a bibliographic key scheme of the Books API
type Bibkey string

// Bibkey schemes accepted by /api/books.json
const (
	BibkeyISBN  Bibkey = "ISBN"
	BibkeyOCLC  Bibkey = "OCLC"
	BibkeyLCCN  Bibkey = "LCCN"
	BibkeyOLID  Bibkey = "OLID"
	BibkeyOCAID Bibkey = "OCAID"
)

func (k Bibkey) valid() bool {
	switch k {
	case BibkeyISBN, BibkeyOCLC, BibkeyLCCN, BibkeyOLID, BibkeyOCAID:
		return true
	}
	return false
}

// BibkeyMetadata is the first matched object of the Books API
// https://openlibrary.org/dev/docs/api/books
type BibkeyMetadata struct {
	BibKey       string `json:"bib_key"`
	InfoURL      string `json:"info_url"`
	Preview      string `json:"preview"`
	PreviewURL   string `json:"preview_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// GetBibkeyMetadata looks up a bibliographic key (LCCN, OCLC,
// ISBN10/13, OCAID) using the Books API and returns the first matched
// object, or ErrNotFound when there is no match.
func (c *Client) GetBibkeyMetadata(ctx context.Context, key Bibkey, value string) (*BibkeyMetadata, error) {
	if !key.valid() {
		return nil, ErrInvalidBibkey
	}

	bibkey := fmt.Sprintf("%s:%s", key, value)
	var results map[string]BibkeyMetadata
	if err := c.getJSON(ctx, "/api/books.json?bibkeys="+url.QueryEscape(bibkey), &results); err != nil {
		return nil, err
	}

	meta, ok := results[bibkey]
	if !ok {
		return nil, fmt.Errorf("no edition for %s: %w", bibkey, ErrNotFound)
	}
	return &meta, nil
}

// GetEditionOLID resolves a bibliographic key to an edition OLID
func (c *Client) GetEditionOLID(ctx context.Context, key Bibkey, value string) (string, error) {
	meta, err := c.GetBibkeyMetadata(ctx, key, value)
	if err != nil {
		return "", err
	}
	olid := models.ExtractOLID(meta.InfoURL, models.KindEdition)
	if olid == "" {
		return "", fmt.Errorf("no edition olid in %q: %w", meta.InfoURL, ErrNotFound)
	}
	return olid, nil
}

// GetEdition retrieves a single edition by olid
func (c *Client) GetEdition(ctx context.Context, olid string) (*Edition, error) {
	body, err := c.getRecord(ctx, "/books/"+olid)
	if err != nil {
		return nil, err
	}

	var edition Edition
	if err := json.Unmarshal(body, &edition); err != nil {
		return nil, fmt.Errorf("unable to decode edition %s: %w", olid, err)
	}
	if edition.OLID == "" {
		edition.OLID = olid
	}
	return &edition, nil
}

// GetEditionByISBN retrieves an edition by ISBN-10 or ISBN-13
func (c *Client) GetEditionByISBN(ctx context.Context, isbn string) (*Edition, error) {
	return c.getEditionByBibkey(ctx, BibkeyISBN, isbn)
}

// GetEditionByOCLC retrieves an edition by OCLC number
func (c *Client) GetEditionByOCLC(ctx context.Context, oclc string) (*Edition, error) {
	return c.getEditionByBibkey(ctx, BibkeyOCLC, oclc)
}

// GetEditionByLCCN retrieves an edition by LCCN
func (c *Client) GetEditionByLCCN(ctx context.Context, lccn string) (*Edition, error) {
	return c.getEditionByBibkey(ctx, BibkeyLCCN, lccn)
}

// GetEditionByOCAID retrieves an edition by archive.org item identifier
func (c *Client) GetEditionByOCAID(ctx context.Context, ocaid string) (*Edition, error) {
	return c.getEditionByBibkey(ctx, BibkeyOCAID, ocaid)
}

func (c *Client) getEditionByBibkey(ctx context.Context, key Bibkey, value string) (*Edition, error) {
	olid, err := c.GetEditionOLID(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return c.GetEdition(ctx, olid)
}

// SaveEdition writes the edition back to the catalog with an edit comment
func (c *Client) SaveEdition(ctx context.Context, edition *Edition, comment string) error {
	if edition.OLID == "" {
		return fmt.Errorf("edition has no olid")
	}
	return c.putDocument(ctx, edition.Key(), edition.Document(), comment)
}

// AddCover attaches a cover image to the edition by URL
func (c *Client) AddCover(ctx context.Context, olid, coverURL string) error {
	return c.uploadCover(ctx, fmt.Sprintf("/books/%s/-/add-cover", olid), coverURL)
}

// AddCoverFromFile uploads cover image bytes for the edition
func (c *Client) AddCoverFromFile(ctx context.Context, olid, filename string, data []byte, mimeType string) error {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	h["Content-Type"] = []string{mimeType}
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.WriteField("url", "https://"); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.WriteField("upload", "Submit"); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	_, _, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/books/%s/-/add-cover", olid), buf.Bytes(), header)
	return err
}

// uploadCover posts the add-cover form with a remote image URL
func (c *Client) uploadCover(ctx context.Context, path, coverURL string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("file", ""); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.WriteField("url", coverURL); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.WriteField("upload", "submit"); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	_, _, err := c.do(ctx, http.MethodPost, path, buf.Bytes(), header)
	return err
}

// primaryIdentifiers is the order in which book identifiers are tried
// when creating a new edition.
var primaryIdentifiers = []models.IdentifierType{
	models.IDISBN10,
	models.IDISBN13,
	models.IDLCCN,
	models.IDOcaid,
}

// primaryIdentifier picks the identifier /books/add will be keyed on
func primaryIdentifier(book *models.Book) (models.IdentifierType, string, error) {
	for _, idType := range primaryIdentifiers {
		if values := book.Identifiers[idType]; len(values) > 0 {
			return idType, values[0], nil
		}
	}
	return "", "", fmt.Errorf("isbn_10, isbn_13, lccn, or ocaid required")
}

// CreateBook creates a new edition (and work, unless workOLID
// associates it with an existing one) using the /books/add endpoint.
// Authors are resolved to existing catalog authors by exact name match
// or created along with the book.
func (c *Client) CreateBook(ctx context.Context, book *models.Book, workOLID string) (*Edition, error) {
	idName, idValue, err := primaryIdentifier(book)
	if err != nil {
		return nil, err
	}
	if len(book.Authors) == 0 {
		return nil, fmt.Errorf("unable to create a book without a valid author name")
	}

	form := url.Values{}
	form.Set("book_title", book.Title)
	form.Set("publish_date", book.PublishDate)
	form.Set("publisher", book.Publisher)
	form.Set("id_name", string(idName))
	form.Set("id_value", idValue)
	form.Set("_save", "")

	for i, author := range book.Authors {
		authorKey := "__new__"
		olid, err := c.GetAuthorOLIDByName(ctx, author.Name)
		switch {
		case err == nil:
			authorKey = "/authors/" + olid
		case errors.Is(err, ErrNotFound):
			// new author, created with the book
		default:
			return nil, fmt.Errorf("failed to resolve author %q: %w", author.Name, err)
		}
		form.Set(fmt.Sprintf("author_names--%d", i), author.Name)
		form.Set(fmt.Sprintf("authors--%d--author--key", i), authorKey)
	}

	path := "/books/add"
	if workOLID != "" {
		path += "?work=" + url.QueryEscape("/works/"+workOLID)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _, err := c.do(ctx, http.MethodPost, path, []byte(form.Encode()), header)
	if err != nil {
		return nil, err
	}

	// The endpoint redirects to the new edition's page on success and
	// back to /books/add when it refused to create the record.
	olid := models.ExtractOLID(resp.Request.URL.String(), models.KindEdition)
	if olid == "" || olid == "add" {
		return nil, ErrCreateFailed
	}

	c.logger.Info("Created book", map[string]interface{}{
		"olid":     olid,
		"title":    book.Title,
		"id_name":  string(idName),
		"id_value": idValue,
	})
	return c.GetEdition(ctx, olid)
}
