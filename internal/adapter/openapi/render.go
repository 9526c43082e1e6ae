package openapi

import (
	"fmt"
	"sort"
	"strings"
)

// maxSchemaDepth bounds recursive schema expansion.
const maxSchemaDepth = 5

// renderer renders one operation to Markdown. root is the full spec,
// needed to resolve $ref pointers.
type renderer struct {
	root map[string]any
}

func (r *renderer) renderOperation(title, method, route string, op map[string]any) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)
	if deprecated, _ := op["deprecated"].(bool); deprecated {
		sb.WriteString("> ⚠️ 该接口已废弃。\n\n")
	}
	fmt.Fprintf(&sb, "`%s %s`\n\n", method, route)

	if desc, _ := op["description"].(string); desc != "" {
		sb.WriteString(strings.TrimSpace(desc) + "\n\n")
	}

	r.renderParameters(&sb, op)
	r.renderRequestBody(&sb, op)
	r.renderResponses(&sb, op)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

var paramGroups = []struct {
	in    string
	label string
}{
	{"path", "路径参数"},
	{"query", "查询参数"},
	{"header", "请求头参数"},
	{"cookie", "Cookie 参数"},
}

func (r *renderer) renderParameters(sb *strings.Builder, op map[string]any) {
	params, _ := op["parameters"].([]any)
	if len(params) == 0 {
		return
	}

	byIn := map[string][]map[string]any{}
	for _, raw := range params {
		p, _ := raw.(map[string]any)
		if p == nil {
			continue
		}
		p = r.resolve(p)
		in, _ := p["in"].(string)
		byIn[in] = append(byIn[in], p)
	}

	sb.WriteString("## 请求参数\n\n")
	for _, group := range paramGroups {
		list := byIn[group.in]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(sb, "### %s\n\n", group.label)
		sb.WriteString("| 参数 | 类型 | 必填 | 说明 |\n|---|---|---|---|\n")
		for _, p := range list {
			name, _ := p["name"].(string)
			required, _ := p["required"].(bool)
			desc, _ := p["description"].(string)
			typ := r.schemaType(asMap(p["schema"]))
			fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
				name, typ, requiredLabel(required), tableCell(desc))
		}
		sb.WriteString("\n")
	}
}

func (r *renderer) renderRequestBody(sb *strings.Builder, op map[string]any) {
	body := r.resolve(asMap(op["requestBody"]))
	if body == nil {
		return
	}
	schema, mediaType := r.pickContent(asMap(body["content"]))
	if schema == nil {
		return
	}

	sb.WriteString("## 请求体\n\n")
	if desc, _ := body["description"].(string); desc != "" {
		sb.WriteString(strings.TrimSpace(desc) + "\n\n")
	}
	if mediaType != "" {
		fmt.Fprintf(sb, "Content-Type: `%s`\n\n", mediaType)
	}
	r.renderSchema(sb, schema, 0, 0, map[string]bool{})
	sb.WriteString("\n")
}

func (r *renderer) renderResponses(sb *strings.Builder, op map[string]any) {
	responses, _ := op["responses"].(map[string]any)
	if len(responses) == 0 {
		return
	}
	statuses := make([]string, 0, len(responses))
	for status := range responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	sb.WriteString("## 响应\n\n")
	for _, status := range statuses {
		resp := r.resolve(asMap(responses[status]))
		if resp == nil {
			continue
		}
		desc, _ := resp["description"].(string)
		fmt.Fprintf(sb, "### %s %s\n\n", status, desc)

		if schema, _ := r.pickContent(asMap(resp["content"])); schema != nil {
			r.renderSchema(sb, schema, 0, 0, map[string]bool{})
			sb.WriteString("\n")
		}
	}
}

// pickContent prefers the JSON media type, falling back to the first one
// in sorted order.
func (r *renderer) pickContent(content map[string]any) (map[string]any, string) {
	if len(content) == 0 {
		return nil, ""
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pick := keys[0]
	for _, k := range keys {
		if strings.Contains(k, "json") {
			pick = k
			break
		}
	}
	schema := asMap(asMap(content[pick])["schema"])
	if schema == nil {
		return nil, ""
	}
	return schema, pick
}

// renderSchema writes a schema as an indented bullet list. visited tracks
// $ref names on the current expansion path to break cycles.
func (r *renderer) renderSchema(sb *strings.Builder, schema map[string]any, indent, depth int, visited map[string]bool) {
	if schema == nil {
		return
	}
	if depth > maxSchemaDepth {
		r.line(sb, indent, "…")
		return
	}

	if ref, _ := schema["$ref"].(string); ref != "" {
		name := refName(ref)
		if !strings.HasPrefix(ref, "#/") {
			r.line(sb, indent, fmt.Sprintf("[外部引用: %s]", ref))
			return
		}
		if visited[name] {
			r.line(sb, indent, fmt.Sprintf("[循环引用: %s]", name))
			return
		}
		resolved := r.resolveRef(ref)
		if resolved == nil {
			r.line(sb, indent, fmt.Sprintf("[未定义引用: %s]", name))
			return
		}
		visited[name] = true
		r.renderSchema(sb, resolved, indent, depth, visited)
		delete(visited, name)
		return
	}

	if allOf, _ := schema["allOf"].([]any); len(allOf) > 0 {
		r.renderSchema(sb, r.mergeAllOf(allOf, depth, visited), indent, depth, visited)
		return
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		variants, _ := schema[key].([]any)
		if len(variants) == 0 {
			continue
		}
		for i, raw := range variants {
			r.line(sb, indent, fmt.Sprintf("方式%d：", i+1))
			r.renderSchema(sb, asMap(raw), indent+1, depth+1, visited)
		}
		return
	}

	typ, _ := schema["type"].(string)
	switch typ {
	case "object", "":
		props := asMap(schema["properties"])
		if len(props) == 0 {
			if typ == "object" {
				r.line(sb, indent, "object")
			}
			return
		}
		required := requiredSet(schema)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop := asMap(props[name])
			r.renderProperty(sb, name, prop, required[name], indent, depth, visited)
		}
	case "array":
		r.line(sb, indent, "数组，元素：")
		r.renderSchema(sb, asMap(schema["items"]), indent+1, depth+1, visited)
	default:
		r.line(sb, indent, r.schemaType(schema))
	}
}

func (r *renderer) renderProperty(sb *strings.Builder, name string, prop map[string]any, required bool, indent, depth int, visited map[string]bool) {
	resolved := prop
	cycle := ""
	external := ""
	if ref, _ := prop["$ref"].(string); ref != "" {
		refN := refName(ref)
		switch {
		case !strings.HasPrefix(ref, "#/"):
			external = ref
		case visited[refN]:
			cycle = refN
		default:
			if rs := r.resolveRef(ref); rs != nil {
				resolved = rs
			}
		}
	}

	label := fmt.Sprintf("`%s` (%s", name, r.schemaType(resolved))
	if required {
		label += ", 必填"
	}
	label += ")"
	if desc, _ := resolved["description"].(string); desc != "" {
		label += "：" + oneLine(desc)
	}
	switch {
	case cycle != "":
		label += fmt.Sprintf(" [循环引用: %s]", cycle)
	case external != "":
		label += fmt.Sprintf(" [外部引用: %s]", external)
	}
	if enum, _ := resolved["enum"].([]any); len(enum) > 0 {
		label += "，可选值：" + enumList(enum)
	}
	r.line(sb, indent, label)

	if cycle != "" || external != "" {
		return
	}

	typ, _ := resolved["type"].(string)
	switch typ {
	case "object":
		if len(asMap(resolved["properties"])) > 0 {
			ref, _ := prop["$ref"].(string)
			if name := refName(ref); name != "" {
				visited[name] = true
				defer delete(visited, name)
			}
			r.renderSchema(sb, resolved, indent+1, depth+1, visited)
		}
	case "array":
		items := asMap(resolved["items"])
		if items != nil && !isScalar(items) {
			r.line(sb, indent+1, "元素：")
			r.renderSchema(sb, items, indent+2, depth+2, visited)
		}
	}
}

// mergeAllOf flattens allOf members into one object schema, combining
// properties and required lists.
func (r *renderer) mergeAllOf(members []any, depth int, visited map[string]bool) map[string]any {
	merged := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	var required []any
	props := merged["properties"].(map[string]any)

	for _, raw := range members {
		member := asMap(raw)
		if ref, _ := member["$ref"].(string); ref != "" && strings.HasPrefix(ref, "#/") {
			if resolved := r.resolveRef(ref); resolved != nil && !visited[refName(ref)] {
				member = resolved
			}
		}
		for name, prop := range asMap(member["properties"]) {
			props[name] = prop
		}
		if req, _ := member["required"].([]any); len(req) > 0 {
			required = append(required, req...)
		}
		if desc, _ := member["description"].(string); desc != "" {
			merged["description"] = desc
		}
	}
	if len(required) > 0 {
		merged["required"] = required
	}
	return merged
}

// resolve follows one level of $ref on a component (parameter, response,
// requestBody). Schema refs go through renderSchema instead.
func (r *renderer) resolve(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	if ref, _ := m["$ref"].(string); ref != "" && strings.HasPrefix(ref, "#/") {
		if resolved := r.resolveRef(ref); resolved != nil {
			return resolved
		}
	}
	return m
}

// resolveRef walks an internal JSON pointer like
// "#/components/schemas/User".
func (r *renderer) resolveRef(ref string) map[string]any {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	cur := any(r.root)
	for _, part := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return asMap(cur)
}

// schemaType describes a schema in one token for tables and labels.
func (r *renderer) schemaType(schema map[string]any) string {
	if schema == nil {
		return "any"
	}
	if ref, _ := schema["$ref"].(string); ref != "" {
		if resolved := r.resolveRef(ref); resolved != nil {
			return r.schemaType(resolved)
		}
		return refName(ref)
	}
	typ, _ := schema["type"].(string)
	switch typ {
	case "array":
		return r.schemaType(asMap(schema["items"])) + "[]"
	case "":
		if len(asMap(schema["properties"])) > 0 {
			return "object"
		}
		return "any"
	}
	if format, _ := schema["format"].(string); format != "" {
		return typ + "(" + format + ")"
	}
	return typ
}

func (r *renderer) line(sb *strings.Builder, indent int, text string) {
	sb.WriteString(strings.Repeat("  ", indent) + "- " + text + "\n")
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func refName(ref string) string {
	if ref == "" {
		return ""
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func requiredSet(schema map[string]any) map[string]bool {
	set := map[string]bool{}
	if req, _ := schema["required"].([]any); req != nil {
		for _, raw := range req {
			if name, ok := raw.(string); ok {
				set[name] = true
			}
		}
	}
	return set
}

func requiredLabel(required bool) string {
	if required {
		return "是"
	}
	return "否"
}

func isScalar(schema map[string]any) bool {
	typ, _ := schema["type"].(string)
	switch typ {
	case "string", "integer", "number", "boolean":
		return schema["enum"] == nil
	}
	return false
}

func enumList(enum []any) string {
	parts := make([]string, 0, len(enum))
	for _, v := range enum {
		parts = append(parts, fmt.Sprintf("`%v`", v))
	}
	return strings.Join(parts, " / ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func tableCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", "\\|")
}
