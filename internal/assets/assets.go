// Package assets embeds the static files shipped inside the contentpipe
// binary: the sample configuration written by "contentpipe init" and the
// single-page dashboard served by "contentpipe serve".
package assets

import _ "embed"

// SampleConfig is the annotated contentpipe.yml written by "init".
//
//go:embed contentpipe.sample.yml
var SampleConfig []byte

// Dashboard is the HTML page served at the server root.
//
//go:embed dashboard.html
var Dashboard []byte
