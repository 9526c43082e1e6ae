// Package configs provides embedded data files for SpecFusion.
//
// The default user dictionary is embedded at build time using Go's
// //go:embed directive so it is available in all distributions (source
// builds and binary releases). A site can still override it by pointing
// USERDICT_PATH at an external file; entries there are loaded on top of
// the embedded defaults.
package configs

import _ "embed"

// DefaultUserDict is the built-in tokenizer dictionary listing
// platform-specific terms, one "word weight" pair per line.
// It keeps multi-character product terms (自建应用, 客户联系, 多维表格)
// from being split apart by the generic segmenter.
//
//go:embed userdict.txt
var DefaultUserDict string
