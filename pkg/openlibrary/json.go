package openlibrary

import (
	"encoding/json"

	"github.com/internetarchive/olclient/pkg/models"
)

// typeRef is the {"key": "/type/..."} object the API uses to tag records.
type typeRef struct {
	Key string `json:"key"`
}

// keyRef is a {"key": "/works/OL1W"} style reference to another record.
type keyRef struct {
	Key string `json:"key"`
}

// textNode emits the canonical /type/text form for description, notes
// and bio fields.
func textNode(value string) map[string]string {
	return map[string]string{"type": "/type/text", "value": value}
}

// decodeText reads a field that can either be a properly formed
// /type/text object or an (incorrect) bare string. Used for
// Work/Edition notes and description and Author bio.
func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var node struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &node); err == nil {
		return node.Value
	}
	return ""
}

// The pop helpers extract a typed field from a raw record map,
// removing it so whatever remains can round-trip untouched.

func popRaw(raw map[string]json.RawMessage, key string) json.RawMessage {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	return v
}

func popString(raw map[string]json.RawMessage, key string) string {
	v := popRaw(raw, key)
	if v == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func popStrings(raw map[string]json.RawMessage, key string) []string {
	v := popRaw(raw, key)
	if v == nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return out
}

func popInt(raw map[string]json.RawMessage, key string) int {
	v := popRaw(raw, key)
	if v == nil {
		return 0
	}
	var n int
	if err := json.Unmarshal(v, &n); err != nil {
		return 0
	}
	return n
}

func popText(raw map[string]json.RawMessage, key string) string {
	return decodeText(popRaw(raw, key))
}

// popKeyRefs reads a list of {"key": "/authors/OL1A"} references and
// returns the bare OLIDs.
func popKeyRefs(raw map[string]json.RawMessage, key string) []string {
	v := popRaw(raw, key)
	if v == nil {
		return nil
	}
	var refs []keyRef
	if err := json.Unmarshal(v, &refs); err != nil {
		return nil
	}
	olids := make([]string, 0, len(refs))
	for _, ref := range refs {
		olids = append(olids, models.OLIDFromKey(ref.Key))
	}
	return olids
}
