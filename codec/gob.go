package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob is the native binary codec.
//
// Unlike JSON it preserves NaN range values exactly, which makes it the
// canonical store for cleaned tables (the role the original campaign data
// assigned to its native serialized structure). Not portable outside Go.
type Gob struct{}

// Marshal encodes the value with encoding/gob.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes gob data into v.
func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Name returns the unique name of the codec ("gob").
func (Gob) Name() string { return "gob" }
