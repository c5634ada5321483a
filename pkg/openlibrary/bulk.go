package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/internetarchive/olclient/pkg/models"
)

// Document is any catalog record that can render itself as the JSON
// document the API stores. Work, Edition and Author all implement it.
type Document interface {
	Key() string
	Document() map[string]interface{}
}

// Get retrieves any record by olid, dispatching on the olid suffix.
// The result is a *Work, *Edition or *Author.
func (c *Client) Get(ctx context.Context, olid string) (Document, error) {
	kind, err := models.KindOf(olid)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.KindWork:
		return c.GetWork(ctx, olid)
	case models.KindEdition:
		return c.GetEdition(ctx, olid)
	case models.KindAuthor:
		return c.GetAuthor(ctx, olid)
	}
	return nil, fmt.Errorf("unknown type for olid: %s", olid)
}

// Delete marks a record as deleted by replacing the document with a
// /type/delete stub. Requires a logged-in session with librarian or
// admin permission on the backend.
func (c *Client) Delete(ctx context.Context, olid, comment string) error {
	key, err := models.FullKey(olid)
	if err != nil {
		return err
	}
	doc := map[string]interface{}{
		"type": typeRef{Key: "/type/delete"},
	}
	if err := c.putDocument(ctx, key, doc, comment); err != nil {
		return fmt.Errorf("failed to delete %s: %w", olid, err)
	}
	return nil
}

// Redirect replaces the record at fromOLID with a redirect pointing at
// toOLID. Both olids must name records of the same kind.
func (c *Client) Redirect(ctx context.Context, fromOLID, toOLID, comment string) error {
	fromKind, err := models.KindOf(fromOLID)
	if err != nil {
		return err
	}
	toKind, err := models.KindOf(toOLID)
	if err != nil {
		return err
	}
	if fromKind != toKind {
		return fmt.Errorf("cannot redirect %s to %s: %w", fromOLID, toOLID, ErrKindMismatch)
	}

	fromKey := "/" + fromKind.Path() + "/" + fromOLID
	doc := map[string]interface{}{
		"key":      fromKey,
		"location": "/" + toKind.Path() + "/" + toOLID,
		"type":     typeRef{Key: "/type/redirect"},
	}
	if err := c.putDocument(ctx, fromKey, doc, comment); err != nil {
		return fmt.Errorf("failed to redirect %s to %s: %w", fromOLID, toOLID, err)
	}
	return nil
}

// saveMany POSTs a batch of documents to the bulk save endpoint. The
// edit comment travels in an extension header per RFC 2774.
func (c *Client) saveMany(ctx context.Context, docs []map[string]interface{}, comment string) error {
	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Opt", `"http://openlibrary.org/dev/docs/api"; ns=42`)
	header.Set("42-comment", comment)
	if _, _, err := c.do(ctx, http.MethodPost, "/api/save_many", body, header); err != nil {
		return fmt.Errorf("save_many failed: %w", err)
	}
	return nil
}

// SaveMany writes a batch of records in a single API call with one
// shared edit comment.
func (c *Client) SaveMany(ctx context.Context, docs []Document, comment string) error {
	if len(docs) == 0 {
		return nil
	}

	payload := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, doc.Document())
	}
	if err := c.saveMany(ctx, payload, comment); err != nil {
		return err
	}

	for _, doc := range docs {
		c.records.Delete(doc.Key())
	}
	c.logger.Info("Saved records in bulk", map[string]interface{}{
		"count":   len(docs),
		"comment": comment,
	})
	return nil
}

// DeleteMany marks a batch of records as deleted in a single API call.
func (c *Client) DeleteMany(ctx context.Context, olids []string, comment string) error {
	if len(olids) == 0 {
		return nil
	}

	payload := make([]map[string]interface{}, 0, len(olids))
	keys := make([]string, 0, len(olids))
	for _, olid := range olids {
		key, err := models.FullKey(olid)
		if err != nil {
			return err
		}
		payload = append(payload, map[string]interface{}{
			"key":  key,
			"type": typeRef{Key: "/type/delete"},
		})
		keys = append(keys, key)
	}
	if err := c.saveMany(ctx, payload, comment); err != nil {
		return err
	}

	for _, key := range keys {
		c.records.Delete(key)
	}
	c.logger.Info("Deleted records in bulk", map[string]interface{}{
		"count":   len(olids),
		"comment": comment,
	})
	return nil
}
