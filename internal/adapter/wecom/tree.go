package wecom

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// visible is the upstream status value for published categories.
const visibleStatus = 2

// Category is one node of the flat list the catalog endpoint returns.
type Category struct {
	CategoryID int64  `json:"category_id"`
	ParentID   int64  `json:"parent_id"`
	Name       string `json:"name"`
	OrderID    int    `json:"order_id"`
	Status     int    `json:"status"`
	Type       int    `json:"type"`
	DocID      int64  `json:"doc_id"`
	URL        string `json:"url"`
	UpdateTime int64  `json:"update_time"`

	children []*Category
}

// isFolder reports whether the node recurses rather than emitting a doc.
func (c *Category) isFolder() bool {
	return c.Type == 0 || (c.DocID == 0 && len(c.children) > 0)
}

// buildTree links the flat list into parent/child form, keeping only
// published nodes. Children are ordered by order_id, ties broken by
// Chinese collation on the title.
func buildTree(flat []Category) []*Category {
	byID := make(map[int64]*Category, len(flat))
	for i := range flat {
		if flat[i].Status != visibleStatus {
			continue
		}
		node := flat[i]
		byID[node.CategoryID] = &node
	}

	var roots []*Category
	for _, node := range byID {
		if parent, ok := byID[node.ParentID]; ok && node.ParentID != node.CategoryID {
			parent.children = append(parent.children, node)
		} else {
			roots = append(roots, node)
		}
	}

	coll := collate.New(language.Chinese)
	var sortChildren func([]*Category)
	sortChildren = func(nodes []*Category) {
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].OrderID != nodes[j].OrderID {
				return nodes[i].OrderID < nodes[j].OrderID
			}
			return coll.CompareString(nodes[i].Name, nodes[j].Name) < 0
		})
		for _, n := range nodes {
			sortChildren(n.children)
		}
	}
	sortChildren(roots)
	return roots
}

// segment builds one path segment: zero-padded ordinal plus the ASCII
// slug of the title. seen carries this namespace's used segments; a
// collision appends the category id.
func segment(ordinal int, node *Category, seen map[string]bool) string {
	seg := fmt.Sprintf("%03d-%s", ordinal, slugify(node.Name))
	if seen[seg] {
		seg = fmt.Sprintf("%s-%d", seg, node.CategoryID)
	}
	seen[seg] = true
	return seg
}

// slugify keeps ASCII letters and digits, lowercased, with runs of
// anything else collapsed to single hyphens. Titles with no ASCII at all
// (pure Chinese) slug to "doc".
func slugify(title string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "doc"
	}
	return slug
}

// devModeFromURL maps the doc URL fragments onto the dev-mode axis.
func devModeFromURL(url string) string {
	switch {
	case strings.Contains(url, "/is_third/1"):
		return "third_party"
	case strings.Contains(url, "/is_sp/1"):
		return "service_provider"
	default:
		return "internal"
	}
}
