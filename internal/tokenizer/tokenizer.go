// Package tokenizer produces deterministic whitespace-separated token
// streams from mixed Chinese/English developer documentation.
//
// The same dictionary is used at write time (populating the FTS columns)
// and at query time (building MATCH expressions); loading different
// dictionaries on the two sides would misalign indexed and queried tokens.
package tokenizer

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"

	"github.com/specfusion/specfusion/configs"
)

// protectRe recognizes substrings that must survive segmentation verbatim.
// Alternatives are tried in priority order: absolute URLs, slash-delimited
// paths, identifiers (optionally with ':' or '.'), digit runs.
var protectRe = regexp.MustCompile(
	`https?://[^\s）)】」”，。；、]+` +
		`|(?:/[A-Za-z0-9_.:{}-]+)+/?` +
		`|[A-Za-z][A-Za-z0-9_]*(?:[.:][A-Za-z0-9_]+)+` +
		`|[A-Za-z][A-Za-z0-9_]*` +
		`|\d+`)

// stopWords are dropped from both write-mode and query-mode streams.
var stopWords = map[string]struct{}{
	"的": {}, "了": {}, "是": {}, "在": {}, "有": {}, "和": {}, "与": {},
	"或": {}, "等": {}, "把": {}, "被": {}, "对": {}, "不": {}, "也": {},
	"都": {}, "而": {}, "及": {}, "到": {}, "从": {}, "以": {},
}

var (
	initOnce sync.Once
	initErr  error
	seg      gse.Segmenter

	pathMu   sync.Mutex
	userDict string
)

// Init loads the segmenter dictionary. dictPath may be empty; the embedded
// default dictionary is always loaded, and dictPath entries are applied on
// top. Init is idempotent: only the first call (explicit or lazy) loads.
func Init(dictPath string) error {
	pathMu.Lock()
	userDict = dictPath
	pathMu.Unlock()

	initOnce.Do(load)
	return initErr
}

// ensure lazily initializes the segmenter on first use.
func ensure() {
	initOnce.Do(load)
}

func load() {
	if err := seg.LoadDict(); err != nil {
		initErr = err
		return
	}

	if err := addDictEntries(strings.NewReader(configs.DefaultUserDict)); err != nil {
		initErr = err
		return
	}

	pathMu.Lock()
	path := userDict
	pathMu.Unlock()
	if path != "" {
		initErr = loadUserDictFile(path)
	}
}

// Tokenize segments text in write mode: the segmenter's standard cut, with
// protected substrings emitted verbatim and stop words dropped.
func Tokenize(text string) []string {
	ensure()
	return tokenize(text, false)
}

// TokenizeQuery segments text in query mode: the search-optimized cut
// (which may emit both coarse and fine granularities), deduplicated while
// preserving first-seen order.
func TokenizeQuery(text string) []string {
	ensure()
	tokens := tokenize(text, true)

	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Join renders a token list as the whitespace-separated stream stored in
// the FTS columns.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

func tokenize(text string, searchMode bool) []string {
	// Invalid bytes are skipped, never panicked on.
	text = strings.ToValidUTF8(text, " ")

	var tokens []string
	last := 0
	for _, loc := range protectRe.FindAllStringIndex(text, -1) {
		if gap := text[last:loc[0]]; gap != "" {
			tokens = appendSegments(tokens, gap, searchMode)
		}
		tokens = append(tokens, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if gap := text[last:]; gap != "" {
		tokens = appendSegments(tokens, gap, searchMode)
	}
	return tokens
}

func appendSegments(tokens []string, text string, searchMode bool) []string {
	var segments []string
	if searchMode {
		segments = seg.CutSearch(text, true)
	} else {
		segments = seg.Cut(text, true)
	}

	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, stop := stopWords[s]; stop {
			continue
		}
		if isPunctuation(s) {
			continue
		}
		tokens = append(tokens, s)
	}
	return tokens
}

// isPunctuation reports whether the segment consists entirely of
// punctuation/symbol runes.
func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// loadUserDictFile loads a "word weight" per line dictionary file.
func loadUserDictFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addDictEntries(f)
}

func addDictEntries(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		word := fields[0]
		freq := 100.0
		if len(fields) > 1 {
			if f, err := strconv.ParseFloat(fields[1], 64); err == nil {
				freq = f
			}
		}
		if err := seg.AddToken(word, freq); err != nil {
			return err
		}
	}
	return scanner.Err()
}
