package httpadapter

import _ "embed"

// indexHTML is the browser shell: it renders the transcript, posts one
// cycle per interaction and plays the reply while revealing its words.
//
//go:embed web/index.html
var indexHTML []byte
