package kvstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Merge overlays patch onto dst the way an object spread does: fields present
// in patch replace those in dst, everything else is kept. Unknown fields in
// patch are rejected.
func Merge(dst interface{}, patch map[string]json.RawMessage) error {
	if len(patch) == 0 {
		return nil
	}

	current, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return err
	}
	for k, v := range patch {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("merge fields: %w", err)
	}
	return nil
}
