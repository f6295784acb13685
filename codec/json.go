package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable option: every supported table format can be read
// back by any JSON implementation. NaN-valued ranges are not representable
// in plain JSON; table writers scrub them to null before encoding.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the library.
//
// NOTE: This affects newly-written tables. Existing files record the codec
// name in the manifest and are opened by selecting the codec by name.
var Default Codec = GoJSON{}
