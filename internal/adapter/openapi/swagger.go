package openapi

import "strings"

// convertSwagger2 rewrites a Swagger 2.0 document into the OpenAPI 3
// shape the renderer understands: definitions move under
// components/schemas, $ref prefixes are rewritten, body parameters become
// requestBody, and response schemas move under content.
func convertSwagger2(spec map[string]any) map[string]any {
	out := map[string]any{
		"openapi": "3.0.0",
	}
	if info, ok := spec["info"]; ok {
		out["info"] = info
	}
	if defs := asMap(spec["definitions"]); defs != nil {
		out["components"] = map[string]any{"schemas": defs}
	}

	paths := map[string]any{}
	for route, rawItem := range asMap(spec["paths"]) {
		item := asMap(rawItem)
		newItem := map[string]any{}
		for _, method := range httpMethods {
			op := asMap(item[method])
			if op == nil {
				continue
			}
			newItem[method] = convertOperation(op)
		}
		paths[route] = newItem
	}
	out["paths"] = paths

	return rewriteRefs(out).(map[string]any)
}

func convertOperation(op map[string]any) map[string]any {
	converted := map[string]any{}
	for k, v := range op {
		if k != "parameters" && k != "responses" {
			converted[k] = v
		}
	}

	var params []any
	for _, raw := range asList(op["parameters"]) {
		p := asMap(raw)
		if p == nil {
			continue
		}
		in, _ := p["in"].(string)
		switch in {
		case "body":
			body := map[string]any{}
			if desc, _ := p["description"].(string); desc != "" {
				body["description"] = desc
			}
			if required, _ := p["required"].(bool); required {
				body["required"] = true
			}
			body["content"] = map[string]any{
				"application/json": map[string]any{"schema": p["schema"]},
			}
			converted["requestBody"] = body
		case "formData":
			// Form parameters are rare in the ingested specs; dropped.
		default:
			params = append(params, hoistParamSchema(p))
		}
	}
	if len(params) > 0 {
		converted["parameters"] = params
	}

	responses := map[string]any{}
	for status, rawResp := range asMap(op["responses"]) {
		resp := asMap(rawResp)
		if resp == nil {
			continue
		}
		newResp := map[string]any{}
		if desc, ok := resp["description"]; ok {
			newResp["description"] = desc
		}
		if schema := resp["schema"]; schema != nil {
			newResp["content"] = map[string]any{
				"application/json": map[string]any{"schema": schema},
			}
		}
		responses[status] = newResp
	}
	if len(responses) > 0 {
		converted["responses"] = responses
	}

	return converted
}

// hoistParamSchema moves the flat Swagger 2 type keywords into a nested
// schema object.
func hoistParamSchema(p map[string]any) map[string]any {
	out := map[string]any{}
	schema := map[string]any{}
	for k, v := range p {
		switch k {
		case "type", "format", "enum", "items", "default":
			schema[k] = v
		default:
			out[k] = v
		}
	}
	if len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}

// rewriteRefs rewrites "#/definitions/X" pointers to
// "#/components/schemas/X" across the whole document.
func rewriteRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if k == "$ref" {
				if ref, ok := child.(string); ok {
					t[k] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
					continue
				}
			}
			t[k] = rewriteRefs(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = rewriteRefs(child)
		}
		return t
	default:
		return v
	}
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}
