package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/internetarchive/olclient/pkg/models"
)

// Work is a conceptual bibliographic entity in the catalog, e.g. a
// novel independent of specific printings. Fields the client does not
// model are preserved verbatim so a save never drops data.
type Work struct {
	OLID        string
	Title       string
	Subtitle    string
	Description string
	Notes       string
	Subjects    []string

	raw map[string]json.RawMessage
}

// UnmarshalJSON decodes the API's work representation, accepting both
// the bare-string and /type/text forms of description and notes.
func (w *Work) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "type")
	w.OLID = models.OLIDFromKey(popString(raw, "key"))
	w.Title = popString(raw, "title")
	w.Subtitle = popString(raw, "subtitle")
	w.Description = popText(raw, "description")
	w.Notes = popText(raw, "notes")
	w.Subjects = popStrings(raw, "subjects")
	w.raw = raw
	return nil
}

// Document returns the JSON document representation of the work
// suitable for saving back via the API.
func (w *Work) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(w.raw)+7)
	for k, v := range w.raw {
		doc[k] = v
	}
	doc["key"] = "/works/" + w.OLID
	doc["type"] = typeRef{Key: "/type/work"}
	if w.Title != "" {
		doc["title"] = w.Title
	}
	if w.Subtitle != "" {
		doc["subtitle"] = w.Subtitle
	}
	if len(w.Subjects) > 0 {
		doc["subjects"] = w.Subjects
	}
	if w.Description != "" {
		doc["description"] = textNode(w.Description)
	}
	if w.Notes != "" {
		doc["notes"] = textNode(w.Notes)
	}
	return doc
}

// MarshalJSON implements json.Marshaler
func (w *Work) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Document())
}

// Key returns the work's full catalog key
func (w *Work) Key() string {
	return "/works/" + w.OLID
}

// GetWork retrieves a single work by olid
func (c *Client) GetWork(ctx context.Context, olid string) (*Work, error) {
	body, err := c.getRecord(ctx, "/works/"+olid)
	if err != nil {
		return nil, err
	}

	var work Work
	if err := json.Unmarshal(body, &work); err != nil {
		return nil, fmt.Errorf("unable to decode work %s: %w", olid, err)
	}
	if work.OLID == "" {
		work.OLID = olid
	}
	return &work, nil
}

// SaveWork writes the work back to the catalog with an edit comment
func (c *Client) SaveWork(ctx context.Context, work *Work, comment string) error {
	if work.OLID == "" {
		return fmt.Errorf("work has no olid")
	}
	return c.putDocument(ctx, work.Key(), work.Document(), comment)
}

// DeleteWork deletes a work and its editions. This makes no checks for
// backreference consistency; editions could be orphaned. Use with care.
func (c *Client) DeleteWork(ctx context.Context, olid, comment string) error {
	path := fmt.Sprintf("/works/%s/-/delete.json?comment=%s", olid, url.QueryEscape(comment))
	if _, _, err := c.do(ctx, "POST", path, nil, nil); err != nil {
		return err
	}
	c.records.Delete("/works/" + olid)
	return nil
}

// editionsPage is one page of a work's editions listing
type editionsPage struct {
	Entries []*Edition `json:"entries"`
	Links   struct {
		Next string `json:"next"`
	} `json:"links"`
}

// WorkEditions returns all editions of a work, following the listing's
// pagination links until exhausted.
func (c *Client) WorkEditions(ctx context.Context, olid string) ([]*Edition, error) {
	path := fmt.Sprintf("/works/%s/editions.json", olid)

	var editions []*Edition
	for {
		var page editionsPage
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}
		editions = append(editions, page.Entries...)

		if page.Links.Next == "" {
			break
		}
		path = page.Links.Next
	}

	c.logger.Debug("Fetched work editions", map[string]interface{}{
		"olid":  olid,
		"count": len(editions),
	})
	return editions, nil
}

// AddSubjects merges the given subjects into the work, de-duplicating
// against what the catalog already has.
func (c *Client) AddSubjects(ctx context.Context, olid string, subjects []string, comment string) error {
	key := "/works/" + olid

	var doc map[string]interface{}
	if err := c.getJSON(ctx, key+".json", &doc); err != nil {
		return err
	}

	existing := stringSlice(doc["subjects"])
	merged := existing
	for _, s := range subjects {
		if !containsString(merged, s) {
			merged = append(merged, s)
		}
	}
	doc["subjects"] = merged

	if comment == "" {
		comment = fmt.Sprintf("adding %s to subjects", strings.Join(subjects, ", "))
	}
	return c.putDocument(ctx, key, doc, comment)
}

// RemoveSubjects strips the given subjects from the work
func (c *Client) RemoveSubjects(ctx context.Context, olid string, subjects []string, comment string) error {
	key := "/works/" + olid

	var doc map[string]interface{}
	if err := c.getJSON(ctx, key+".json", &doc); err != nil {
		return err
	}

	remove := map[string]struct{}{}
	for _, s := range subjects {
		remove[s] = struct{}{}
	}
	var kept []string
	for _, s := range stringSlice(doc["subjects"]) {
		if _, drop := remove[s]; !drop {
			kept = append(kept, s)
		}
	}
	doc["subjects"] = kept

	if comment == "" {
		comment = fmt.Sprintf("rm subjects: %s", strings.Join(subjects, ", "))
	}
	return c.putDocument(ctx, key, doc, comment)
}

// AddWorkCover attaches a cover image to the work by URL
func (c *Client) AddWorkCover(ctx context.Context, olid, coverURL string) error {
	return c.uploadCover(ctx, fmt.Sprintf("/works/%s/-/add-cover", olid), coverURL)
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
