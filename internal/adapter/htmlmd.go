package adapter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	residualLinkRe = regexp.MustCompile(`<a[^>]*href="([^"]*)"[^>]*>([^<]*)</a>`)
	languageRe     = regexp.MustCompile(`language-(\w+)`)
)

// HTMLToMarkdown converts platform HTML to normalized Markdown:
// script/style stripped, fenced code blocks with language tags, inline
// code, images, links, headings, tables; blank-line runs collapsed to two.
func HTMLToMarkdown(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	var sb strings.Builder
	for _, node := range doc.Find("body").Nodes {
		renderChildren(&sb, node)
	}

	out := sb.String()
	// Residual anchors survive when the tree walk misses malformed markup.
	out = residualLinkRe.ReplaceAllString(out, "[$2]($1)")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out) + "\n", nil
}

func renderChildren(sb *strings.Builder, node *html.Node) {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

func renderNode(sb *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		sb.WriteString(node.Data)
		return
	case html.ElementNode:
		// Handled below.
	default:
		return
	}

	switch node.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(node.Data[1] - '0')
		sb.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		renderChildren(sb, node)
		sb.WriteString("\n\n")
	case "p", "div", "section", "article":
		sb.WriteString("\n\n")
		renderChildren(sb, node)
		sb.WriteString("\n\n")
	case "pre":
		renderCodeBlock(sb, node)
	case "code":
		sb.WriteString("`" + textContent(node) + "`")
	case "img":
		sb.WriteString(fmt.Sprintf("![%s](%s)", attr(node, "alt"), attr(node, "src")))
	case "a":
		text := strings.TrimSpace(textContent(node))
		href := attr(node, "href")
		if href == "" {
			sb.WriteString(text)
		} else {
			sb.WriteString(fmt.Sprintf("[%s](%s)", text, href))
		}
	case "br":
		sb.WriteString("\n")
	case "hr":
		sb.WriteString("\n\n---\n\n")
	case "strong", "b":
		sb.WriteString("**")
		renderChildren(sb, node)
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("*")
		renderChildren(sb, node)
		sb.WriteString("*")
	case "li":
		sb.WriteString("\n- ")
		renderChildren(sb, node)
	case "ul", "ol":
		renderChildren(sb, node)
		sb.WriteString("\n")
	case "table":
		renderTable(sb, node)
	case "head", "title", "meta", "link":
		// Skipped.
	default:
		renderChildren(sb, node)
	}
}

// renderCodeBlock converts <pre><code class="language-X"> into a fenced
// block, preserving <br> as newlines and trimming trailing whitespace.
func renderCodeBlock(sb *strings.Builder, pre *html.Node) {
	lang := ""
	code := pre
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			code = c
			if m := languageRe.FindStringSubmatch(attr(c, "class")); m != nil {
				lang = m[1]
			}
			break
		}
	}

	var body strings.Builder
	renderPreText(&body, code)
	text := strings.TrimRight(body.String(), " \t\n")

	sb.WriteString("\n\n```" + lang + "\n" + text + "\n```\n\n")
}

// renderPreText flattens a code node, turning <br> into newlines. The HTML
// parser already decodes entities in text nodes.
func renderPreText(sb *strings.Builder, node *html.Node) {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.Data == "br":
			sb.WriteString("\n")
		default:
			renderPreText(sb, c)
		}
	}
}

// renderTable converts a simple table to a pipe table with a separator
// after the first row.
func renderTable(sb *strings.Builder, table *html.Node) {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				var cells []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cell := strings.TrimSpace(textContent(td))
						cell = strings.ReplaceAll(cell, "\n", " ")
						cells = append(cells, cell)
					}
				}
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
			} else if c.Type == html.ElementNode {
				walk(c)
			}
		}
	}
	walk(table)

	if len(rows) == 0 {
		return
	}
	sb.WriteString("\n\n")
	for i, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			sb.WriteString("|" + strings.Repeat("---|", len(row)) + "\n")
		}
	}
	sb.WriteString("\n")
}

func textContent(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			} else {
				walk(c)
			}
		}
	}
	walk(node)
	return sb.String()
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
