package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sendMessageDoc = `<!-- source: wecom -->
<!-- source_url: https://developer.work.weixin.qq.com/document/path/90236 -->

# 发送应用消息

权限说明：需要企业应用权限

调用该接口可以发送应用消息到指定成员。

## 请求

POST /cgi-bin/message/send

| 参数 | 类型 |
|---|---|
| touser | string |
| toparty | string |
| agentid | number |

## 请求示例

` + "```json" + `
{"touser": "UserID1", "msgtype": "text", "agentid": 1}
` + "```" + `
`

func TestSummarizeWorkedExample(t *testing.T) {
	got := Summarize(sendMessageDoc, "wecom_abc123def456")

	// (a) metadata comments preserved.
	assert.Contains(t, got, "<!-- source: wecom -->")

	// (b) title emitted.
	assert.Contains(t, got, "# 发送应用消息")

	// (c) description skips the permission paragraph.
	assert.Contains(t, got, "调用该接口可以发送应用消息到指定成员。")
	assert.NotContains(t, got, "权限说明：需要企业应用权限")

	// (d) method and path extracted.
	assert.Contains(t, got, "**方法**：POST")
	assert.Contains(t, got, "**路径**：/cgi-bin/message/send")

	// (e) table header, separator, and data rows present.
	assert.Contains(t, got, "| 参数 | 类型 |")
	assert.Contains(t, got, "|---|---|")
	assert.Contains(t, got, "| touser | string |")

	// (f) full-text pointer last.
	assert.Contains(t, got, "*（完整参数和代码示例请获取全文：/doc/wecom_abc123def456）*")

	// source URL from the metadata comment.
	assert.Contains(t, got, "**原文**：https://developer.work.weixin.qq.com/document/path/90236")
}

func TestSummarizeTableTruncatedAtTenRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# 参数列表\n\n| 参数 | 类型 |\n|---|---|\n")
	for i := 0; i < 15; i++ {
		sb.WriteString("| field" + string(rune('a'+i)) + " | string |\n")
	}

	got := Summarize(sb.String(), "doc_x")

	assert.Contains(t, got, "| fielda | string |")
	assert.NotContains(t, got, "| fieldk | string |") // row 11
	assert.Contains(t, got, "其余 5 行见全文")
}

func TestSummarizeJSONBlocksCappedAtTwo(t *testing.T) {
	content := "# 示例\n\n## 请求一\n\n```json\n{\"a\": 1}\n```\n\n## 请求二\n\n```json\n{\"b\": 2}\n```\n\n## 请求三\n\n```json\n{\"c\": 3}\n```\n"

	got := Summarize(content, "doc_x")

	assert.Contains(t, got, `{"a": 1}`)
	assert.Contains(t, got, `{"b": 2}`)
	assert.NotContains(t, got, `{"c": 3}`)
	assert.Contains(t, got, "**请求一**：")
}

func TestSummarizeLongJSONTruncated(t *testing.T) {
	long := strings.Repeat(`{"key": "value"},`, 100)
	content := "```json\n" + long + "\n```\n"

	got := Summarize(content, "doc_x")

	assert.Contains(t, got, "…")
	assert.Less(t, len([]rune(got)), len([]rune(content)))
}

func TestSummarizeDescriptionTruncatedAt200(t *testing.T) {
	content := "# 标题\n\n" + strings.Repeat("很长的描述", 100) + "\n"

	got := Summarize(content, "doc_x")

	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "很长的描述") {
			assert.LessOrEqual(t, len([]rune(line)), 201)
			return
		}
	}
	t.Fatal("description line not found")
}

func TestSummarizeMissingSectionsSkipped(t *testing.T) {
	got := Summarize("只有一段普通文本，没有标题、表格或代码。", "doc_x")

	assert.Contains(t, got, "只有一段普通文本")
	assert.NotContains(t, got, "**方法**")
	assert.NotContains(t, got, "|")
	assert.Contains(t, got, "/doc/doc_x")
}

func TestSummarizeOpenAPIsPath(t *testing.T) {
	got := Summarize("# 获取用户\n\n通过 /open-apis/contact/v3/users 获取。", "doc_x")

	assert.Contains(t, got, "**路径**：/open-apis/contact/v3/users")
}
