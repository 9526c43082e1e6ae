package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetShortContentReturnedWhole(t *testing.T) {
	got := Snippet("# 标题\n\n正文很短。", "正文")

	assert.Equal(t, "标题 正文很短。", got)
	assert.NotContains(t, got, "#")
}

func TestSnippetCentersOnQuery(t *testing.T) {
	content := strings.Repeat("前置内容。", 60) + "这里提到发送应用消息的方法。" + strings.Repeat("后续内容。", 60)

	got := Snippet(content, "发送应用消息")

	assert.Contains(t, got, "发送应用消息")
	assert.LessOrEqual(t, len([]rune(got)), snippetWindow+2) // plus ellipses
	assert.True(t, strings.HasPrefix(got, "…"))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSnippetFallsBackToPrefix(t *testing.T) {
	content := strings.Repeat("正文内容。", 100)

	got := Snippet(content, "不存在的词语")

	assert.True(t, strings.HasPrefix(got, "正文内容"))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSnippetStripsMarkdownDecoration(t *testing.T) {
	got := Snippet("## 标题\n\n> 引用 **加粗** `代码` [链接](https://example.com)", "标题")

	for _, ch := range []string{"#", ">", "*", "`", "[", "]"} {
		assert.NotContains(t, got, ch)
	}
}

func TestSnippetNeverSplitsRunes(t *testing.T) {
	content := strings.Repeat("汉", 500)

	got := Snippet(content, "汉")

	for _, r := range got {
		if r != '…' {
			assert.Equal(t, '汉', r)
		}
	}
}

func TestSnippetEmptyContent(t *testing.T) {
	assert.Empty(t, Snippet("", "查询"))
	assert.Empty(t, Snippet("   \n\t", "查询"))
}
