package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfusion/specfusion/internal/store"
)

const petSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Pet API", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "summary": "查询宠物列表",
        "tags": ["宠物"],
        "parameters": [
          {"name": "limit", "in": "query", "required": false,
           "description": "每页数量", "schema": {"type": "integer", "format": "int32"}}
        ],
        "responses": {
          "200": {
            "description": "成功",
            "content": {"application/json": {"schema": {
              "type": "array", "items": {"$ref": "#/components/schemas/Pet"}}}}
          },
          "429": {"description": "请求过于频繁"}
        }
      },
      "post": {
        "summary": "创建宠物",
        "deprecated": true,
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
        },
        "responses": {"201": {"description": "已创建"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "description": "宠物名"},
          "status": {"type": "string", "enum": ["available", "sold"]},
          "friend": {"$ref": "#/components/schemas/Pet"}
        }
      }
    }
  }
}`

func specServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCatalog(t *testing.T) {
	srv := specServer(t, petSpec)
	a := New("petstore", "Pet API", srv.URL)

	entries, err := a.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "宠物/GET /pets", entries[0].Path)
	assert.Equal(t, "查询宠物列表", entries[0].Title)
	assert.Equal(t, "GET /pets", entries[0].APIPath)
	assert.Equal(t, "listPets", entries[0].PlatformID)
	assert.Equal(t, store.DocTypeAPIReference, entries[0].DocType)

	// No operationId falls back to method-route; no tags falls back to default.
	assert.Equal(t, "default/POST /pets", entries[1].Path)
	assert.Equal(t, "post-/pets", entries[1].PlatformID)
}

func TestFetchContent(t *testing.T) {
	srv := specServer(t, petSpec)
	a := New("petstore", "Pet API", srv.URL)

	entries, err := a.FetchCatalog(context.Background())
	require.NoError(t, err)

	content, err := a.FetchContent(context.Background(), entries[0])
	require.NoError(t, err)

	md := content.Markdown
	assert.Contains(t, md, "# 查询宠物列表")
	assert.Contains(t, md, "`GET /pets`")
	assert.Contains(t, md, "### 查询参数")
	assert.Contains(t, md, "| limit | integer(int32) | 否 | 每页数量 |")
	assert.Contains(t, md, "### 200 成功")
	assert.Contains(t, md, "`name` (string, 必填)：宠物名")
	assert.Contains(t, md, "可选值：`available` / `sold`")

	// Self-referencing Pet.friend stops at the cycle sentinel.
	assert.Contains(t, md, "[循环引用: Pet]")

	assert.Equal(t, "GET /pets", content.APIPath)
	require.Len(t, content.ErrorCodes, 1)
	assert.Equal(t, "429", content.ErrorCodes[0].Code)
	assert.Equal(t, "请求过于频繁", content.ErrorCodes[0].Description)
}

func TestFetchContentDeprecated(t *testing.T) {
	srv := specServer(t, petSpec)
	a := New("petstore", "Pet API", srv.URL)

	entries, err := a.FetchCatalog(context.Background())
	require.NoError(t, err)

	content, err := a.FetchContent(context.Background(), entries[1])
	require.NoError(t, err)

	assert.Contains(t, content.Markdown, "已废弃")
	assert.Contains(t, content.Markdown, "## 请求体")
	assert.Empty(t, content.ErrorCodes) // 201 is a success status
}

func TestParseYAMLFallback(t *testing.T) {
	spec, err := Parse([]byte("openapi: 3.0.0\npaths:\n  /ping:\n    get:\n      summary: ping\n"))
	require.NoError(t, err)
	assert.NotNil(t, spec["paths"])
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte("\x00\x01 not a spec {"))
	assert.Error(t, err)
}

func TestSwagger2Shim(t *testing.T) {
	swagger := `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "1"},
  "paths": {
    "/users": {
      "post": {
        "summary": "创建用户",
        "parameters": [
          {"name": "verbose", "in": "query", "type": "boolean"},
          {"name": "body", "in": "body", "required": true,
           "schema": {"$ref": "#/definitions/User"}}
        ],
        "responses": {
          "200": {"description": "ok", "schema": {"$ref": "#/definitions/User"}},
          "403": {"description": "无权限"}
        }
      }
    }
  },
  "definitions": {
    "User": {"type": "object", "required": ["id"],
             "properties": {"id": {"type": "string", "description": "用户ID"}}}
  }
}`
	srv := specServer(t, swagger)
	a := New("legacy", "Legacy", srv.URL)

	entries, err := a.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := a.FetchContent(context.Background(), entries[0])
	require.NoError(t, err)

	assert.Contains(t, content.Markdown, "## 请求体")
	assert.Contains(t, content.Markdown, "`id` (string, 必填)：用户ID")
	assert.Contains(t, content.Markdown, "| verbose | boolean | 否 |")
	require.Len(t, content.ErrorCodes, 1)
	assert.Equal(t, "403", content.ErrorCodes[0].Code)
}

func TestRenderOneOfVariants(t *testing.T) {
	r := &renderer{root: map[string]any{}}
	md := r.renderOperation("发送", "POST", "/send", map[string]any{
		"requestBody": map[string]any{
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{
						"oneOf": []any{
							map[string]any{"type": "object", "properties": map[string]any{
								"text": map[string]any{"type": "string"}}},
							map[string]any{"type": "object", "properties": map[string]any{
								"image_key": map[string]any{"type": "string"}}},
						},
					},
				},
			},
		},
	})

	assert.Contains(t, md, "方式1：")
	assert.Contains(t, md, "方式2：")
	assert.Contains(t, md, "`text` (string)")
	assert.Contains(t, md, "`image_key` (string)")
}

func TestRenderExternalRef(t *testing.T) {
	r := &renderer{root: map[string]any{}}
	md := r.renderOperation("外部", "GET", "/x", map[string]any{
		"responses": map[string]any{
			"200": map[string]any{
				"description": "ok",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"$ref": "https://example.com/shared.yaml#/Thing"},
					},
				},
			},
		},
	})

	assert.Contains(t, md, "[外部引用: https://example.com/shared.yaml#/Thing]")
}
