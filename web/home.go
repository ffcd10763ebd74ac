// Package web holds the landing page served on GET requests.
// The page is embedded in the binary.
package web

import _ "embed"

//go:embed home.html
var homeHTML []byte

// Home returns the landing page HTML.
func Home() []byte {
	return homeHTML
}
