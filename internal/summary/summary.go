// Package summary derives a compact structured preview (~1 KB) from stored
// Markdown. Extraction is pure and line-oriented; each section is
// independent, so a missing input skips that section without aborting.
package summary

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	descriptionMaxChars = 200
	tableMaxRows        = 10
	jsonBlockMaxChars   = 500
	jsonBlockMaxCount   = 2
)

// permissionKeywords mark paragraphs that state call permissions rather
// than describing the API; they are skipped when picking the description.
var permissionKeywords = []string{
	"权限说明", "权限要求", "使用条件", "调用权限", "接口权限",
	"应用权限", "通讯录权限", "数据权限", "permission", "scope",
}

var (
	metaCommentRe = regexp.MustCompile(`^<!--.*-->$`)
	headingRe     = regexp.MustCompile(`^#{1,6}\s`)
	methodPathRe  = regexp.MustCompile(`\b(GET|POST|PUT|PATCH|DELETE|HEAD)\s+(/\S+)`)
	cgiBinRe      = regexp.MustCompile(`/cgi-bin/[^\s)"']+`)
	openAPIsRe    = regexp.MustCompile(`/open-apis/[^\s)"']+`)
	sourceURLRe   = regexp.MustCompile(`<!--\s*source_url:\s*(\S+)\s*-->`)
	boldRe        = regexp.MustCompile(`\*\*([^*]*)\*\*`)
	linkRe        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	tableSepRe    = regexp.MustCompile(`^\|[\s:|-]+\|$`)
)

// Summarize extracts a structured Markdown preview from content.
// The docID feeds the trailing full-text pointer.
func Summarize(content, docID string) string {
	lines := strings.Split(content, "\n")

	var sb strings.Builder

	writeMetaComments(&sb, lines)
	title, titleIdx := firstHeading(lines)
	if title != "" {
		sb.WriteString(title + "\n\n")
	}
	if desc := firstDescription(lines, titleIdx); desc != "" {
		sb.WriteString(desc + "\n\n")
	}
	writeAPIInfo(&sb, content)
	writeFirstTable(&sb, lines)
	writeJSONBlocks(&sb, lines)

	fmt.Fprintf(&sb, "*（完整参数和代码示例请获取全文：/doc/%s）*\n", docID)
	return sb.String()
}

// writeMetaComments preserves HTML-comment metadata lines from the head of
// the document.
func writeMetaComments(sb *strings.Builder, lines []string) {
	wrote := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if wrote {
				break
			}
			continue
		}
		if !metaCommentRe.MatchString(trimmed) {
			break
		}
		sb.WriteString(trimmed + "\n")
		wrote = true
	}
	if wrote {
		sb.WriteString("\n")
	}
}

// firstHeading returns the first '#' heading and its line index, or
// ("", -1).
func firstHeading(lines []string) (string, int) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return trimmed, i
		}
	}
	return "", -1
}

// firstDescription locates the first non-empty, non-heading paragraph after
// the title that is not a permission statement, cleans it, and truncates to
// 200 characters.
func firstDescription(lines []string, titleIdx int) string {
	for i := titleIdx + 1; i >= 0 && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || headingRe.MatchString(trimmed) ||
			metaCommentRe.MatchString(trimmed) ||
			strings.HasPrefix(trimmed, "|") || strings.HasPrefix(trimmed, "```") {
			continue
		}
		if isPermissionParagraph(trimmed) {
			continue
		}
		return truncateRunes(cleanParagraph(trimmed), descriptionMaxChars)
	}
	return ""
}

func isPermissionParagraph(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range permissionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// cleanParagraph strips blockquote markers, bold, and inline links.
func cleanParagraph(text string) string {
	text = strings.TrimLeft(text, "> ")
	text = boldRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// writeAPIInfo extracts the HTTP method and route, trying "METHOD /path"
// first, then bare /cgi-bin/ and /open-apis/ routes, plus the source URL
// from a metadata comment.
func writeAPIInfo(sb *strings.Builder, content string) {
	if m := methodPathRe.FindStringSubmatch(content); m != nil {
		fmt.Fprintf(sb, "**方法**：%s\n**路径**：%s\n\n", m[1], m[2])
	} else if p := cgiBinRe.FindString(content); p != "" {
		fmt.Fprintf(sb, "**路径**：%s\n\n", p)
	} else if p := openAPIsRe.FindString(content); p != "" {
		fmt.Fprintf(sb, "**路径**：%s\n\n", p)
	}

	if m := sourceURLRe.FindStringSubmatch(content); m != nil {
		fmt.Fprintf(sb, "**原文**：%s\n\n", m[1])
	}
}

// writeFirstTable emits the first pipe table (header + separator + up to 10
// data rows, with a remainder row when truncated).
func writeFirstTable(sb *strings.Builder, lines []string) {
	for i := 0; i < len(lines)-1; i++ {
		header := strings.TrimSpace(lines[i])
		sep := strings.TrimSpace(lines[i+1])
		if !strings.HasPrefix(header, "|") || !tableSepRe.MatchString(sep) {
			continue
		}

		sb.WriteString(header + "\n" + sep + "\n")
		rows := 0
		total := 0
		for j := i + 2; j < len(lines); j++ {
			row := strings.TrimSpace(lines[j])
			if !strings.HasPrefix(row, "|") {
				break
			}
			total++
			if rows < tableMaxRows {
				sb.WriteString(row + "\n")
				rows++
			}
		}
		if total > tableMaxRows {
			fmt.Fprintf(sb, "| …… | 其余 %d 行见全文 |\n", total-tableMaxRows)
		}
		sb.WriteString("\n")
		return
	}
}

// writeJSONBlocks emits up to two JSON fenced code blocks, each truncated
// to 500 characters and labeled with the nearest preceding heading.
func writeJSONBlocks(sb *strings.Builder, lines []string) {
	emitted := 0
	lastHeading := ""
	for i := 0; i < len(lines) && emitted < jsonBlockMaxCount; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if headingRe.MatchString(trimmed) {
			lastHeading = strings.TrimLeft(trimmed, "# ")
			continue
		}
		if trimmed != "```json" {
			continue
		}

		var block strings.Builder
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				i = j
				break
			}
			block.WriteString(lines[j] + "\n")
		}

		label := lastHeading
		if label == "" {
			label = "示例"
		}
		fmt.Fprintf(sb, "**%s**：\n```json\n%s```\n\n", label,
			truncateRunes(strings.TrimRight(block.String(), "\n"), jsonBlockMaxChars)+"\n")
		emitted++
	}
}
