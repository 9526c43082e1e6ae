package search

import (
	"fmt"
	"strings"
)

// FormatMarkdown renders a search response as the Markdown body served by
// the /search endpoint.
func FormatMarkdown(resp *Response) string {
	sourceLabel := resp.Source
	if sourceLabel == "" {
		sourceLabel = "全部"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 搜索结果：%s（来源：%s，共 %d 条，耗时 %dms）\n\n",
		resp.Query, sourceLabel, resp.Total, resp.TookMS)

	if len(resp.Results) == 0 {
		writeEmptyDiagnostic(&sb, resp)
		return sb.String()
	}

	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "### %d. %s（评分：%.2f）\n\n", i+1, r.Doc.Title, r.Score)

		sourceLine := fmt.Sprintf("- 来源：%s", r.Doc.SourceID)
		if r.Doc.DevMode != "" {
			sourceLine += fmt.Sprintf(" / %s", r.Doc.DevMode)
		}
		if len(r.OtherModes) > 0 {
			sourceLine += fmt.Sprintf("（其他模式：%s）", strings.Join(r.OtherModes, "、"))
		}
		sb.WriteString(sourceLine + "\n")

		if r.Doc.APIPath != "" {
			fmt.Fprintf(&sb, "- API：`%s`\n", r.Doc.APIPath)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "- 摘要：%s\n", r.Snippet)
		}
		fmt.Fprintf(&sb, "- 文档ID：`%s`\n", r.Doc.ID)
		if r.Doc.SourceURL != "" {
			fmt.Fprintf(&sb, "- 链接：%s\n", r.Doc.SourceURL)
		}
		if !r.Doc.LastUpdated.IsZero() {
			fmt.Fprintf(&sb, "- 更新：%s\n", r.Doc.LastUpdated.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// writeEmptyDiagnostic emits actionable suggestions for zero-result
// queries.
func writeEmptyDiagnostic(sb *strings.Builder, resp *Response) {
	sb.WriteString("未找到匹配的文档。\n\n建议：\n")
	if resp.Source != "" {
		fmt.Fprintf(sb, "- 去掉 `source=%s` 限制后重试\n", resp.Source)
	}
	sb.WriteString("- 缩短查询词，或改用接口路径 / 错误码直接查询\n")
	sb.WriteString("- 查看 `/api/sources` 确认数据源已同步\n")
	sb.WriteString("- 查看 `/api/categories` 浏览可用的文档分类\n")
}
