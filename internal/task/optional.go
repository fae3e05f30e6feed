package task

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field for a nullable column. The zero value leaves
// the column untouched; Set with a nil Value clears it to null.
type Optional struct {
	Set   bool
	Value *string
}

// Some sets the column to v.
func Some(v string) Optional {
	return Optional{Set: true, Value: &v}
}

// Null clears the column to null.
func Null() Optional {
	return Optional{Set: true}
}

// Clone returns a copy of Value that does not alias the patch.
func (o Optional) Clone() *string {
	if o.Value == nil {
		return nil
	}
	v := *o.Value
	return &v
}

func (o Optional) IsZero() bool {
	return !o.Set
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
