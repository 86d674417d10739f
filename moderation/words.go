package moderation

import "embed"

// CensoredFS holds one word list per language, named after its ISO 639-1 code.
//
//go:embed censored/*.txt
var CensoredFS embed.FS

const CensoredDir = "censored"
