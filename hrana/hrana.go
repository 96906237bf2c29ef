// Package hrana defines the wire types of the Hrana protocol spoken by
// sqld/libsql servers. It owns the JSON shapes only; all I/O lives in the
// transport packages.
package hrana

const (
	// SubprotocolV2 is the WebSocket subprotocol for Hrana version 2.
	SubprotocolV2 = "hrana2"

	// PipelinePath is the HTTP endpoint for the Hrana v2 pipeline.
	PipelinePath = "/v2/pipeline"
)
