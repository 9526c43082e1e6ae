package store

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocIDDeterministic(t *testing.T) {
	first := DocID("wecom", "090-message/001-send")
	second := DocID("wecom", "090-message/001-send")

	assert.Equal(t, first, second)
	assert.True(t, len(first) == len("wecom")+1+12)
}

func TestDocIDMatchesHashPrefix(t *testing.T) {
	path := "api/contacts/list"
	sum := sha256.Sum256([]byte(path))
	want := "feishu_" + hex.EncodeToString(sum[:])[:12]

	assert.Equal(t, want, DocID("feishu", path))
}

func TestDocIDDiffersByPath(t *testing.T) {
	assert.NotEqual(t, DocID("wecom", "a"), DocID("wecom", "b"))
	assert.NotEqual(t, DocID("wecom", "a"), DocID("feishu", "a"))
}

func TestPathDepth(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"a", 1},
		{"a/b", 2},
		{"a/b/c", 3},
		{"/a/b/", 2},
		{"a//b", 2},
		{"", 1},
		{"/", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PathDepth(tt.path), "path %q", tt.path)
	}
}

func TestValidDocType(t *testing.T) {
	for _, dt := range []DocType{DocTypeAPIReference, DocTypeGuide, DocTypeErrorCode,
		DocTypeEvent, DocTypeCardTemplate, DocTypeChangelog} {
		assert.True(t, ValidDocType(dt), "doc type %q", dt)
	}
	assert.False(t, ValidDocType("tutorial"))
	assert.False(t, ValidDocType(""))
}

func TestHashContent(t *testing.T) {
	sum := sha256.Sum256([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashContent("hello"))
}
