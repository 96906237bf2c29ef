package hrana

// Value is a single SQL value in Hrana encoding. The Type field selects the
// variant: "null", "integer", "float", "text" or "blob". Integers travel as
// decimal strings in the Value field, blobs as base64 in the Base64 field.
type Value struct {
	Type   string `json:"type"`
	Value  any    `json:"value,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// Value type tags.
const (
	TypeNull    = "null"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeText    = "text"
	TypeBlob    = "blob"
)
