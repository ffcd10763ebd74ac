// Package brew provides value types for the brewing protocol.
package brew

import "strings"

// Request represents an inbound brew request (value type).
// This is extracted from HTTP and passed to the state machine.
type Request struct {
	Method      string
	Variant     string // device variant from the path, "" for the root
	ContentType string
	Body        []byte

	// Metadata
	RemoteAddr string
	Contact    string // Email header, identifies who finished the session
	Host       string
	TraceID    string
}

// Response represents a protocol response (value type).
type Response struct {
	Status  int
	Body    string
	Headers map[string]string
}

// RequestKey identifies the unit of state partitioning: one pot per
// client address and variant. Immutable, used only as a map key.
type RequestKey struct {
	ClientAddr string
	Variant    string
}

// ResolveKey derives the request key from the client address and the
// device variant. An empty variant is a valid key of its own.
func ResolveKey(clientAddr, variant string) RequestKey {
	return RequestKey{ClientAddr: clientAddr, Variant: variant}
}

// String returns the flat store-key form "addr/variant".
func (k RequestKey) String() string {
	return k.ClientAddr + "/" + k.Variant
}

// Command is the parsed request body, a closed set.
type Command int

const (
	CommandUnknown Command = iota
	CommandStart
	CommandStop
)

// ParseCommand classifies a request body. Anything that is not exactly
// a start or stop command is unknown.
func ParseCommand(body []byte) Command {
	switch string(body) {
	case "start":
		return CommandStart
	case "stop":
		return CommandStop
	default:
		return CommandUnknown
	}
}

// Alternates renders the Alternates header value enumerating the
// supported variants, e.g. {"/earl-grey" {type message/teapot}}.
func Alternates(variants []string, contentType string) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, `{"/`+v+`" {type `+contentType+`}}`)
	}
	return strings.Join(parts, ", ")
}

// SupportedVariant reports whether variant is in the configured list.
func SupportedVariant(variants []string, variant string) bool {
	for _, v := range variants {
		if v == variant {
			return true
		}
	}
	return false
}
