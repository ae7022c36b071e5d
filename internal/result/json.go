package result

import "encoding/json"

// marshalJSON is a thin indirection so Handle/ExtractedImage's custom
// MarshalJSON methods share one import of encoding/json.
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON mirrors marshalJSON for the corresponding UnmarshalJSON methods.
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
