package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref is an identifier that the backend sends either as a plain string or as a
// populated document carrying `_id`.
type Ref string

// String returns the identifier.
func (r Ref) String() string { return string(r) }

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool { return r == "" }

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	case '{':
		var doc struct {
			MongoID string `json:"_id"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		if doc.MongoID != "" {
			*r = Ref(doc.MongoID)
		} else {
			*r = Ref(doc.ID)
		}
		return nil
	default:
		return fmt.Errorf("chat: unsupported reference %s", string(data))
	}
}
