package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/search"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/summary"
	"github.com/specfusion/specfusion/internal/telemetry"
)

// Clamp bounds for the list endpoints.
const (
	categoryLimitDefault = 50
	categoryLimitMax     = 100

	recentDaysDefault  = 7
	recentDaysMax      = 90
	recentLimitDefault = 20
	recentLimitMax     = 100
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeMarkdownStatus(w, http.StatusBadRequest,
			"## 缺少查询参数\n\n`q` 参数不能为空。用法：`/api/search?q=发送消息`\n")
		return
	}

	opts := search.Options{
		Source: r.URL.Query().Get("source"),
		Mode:   r.URL.Query().Get("mode"),
		Limit:  intParam(r, "limit", 0),
	}
	started := time.Now()
	resp, err := s.engine.Search(r.Context(), q, opts)
	if err != nil {
		s.internalError(w, "search failed", err)
		return
	}
	s.metrics.Record(telemetry.QueryEvent{
		Query:       q,
		Source:      opts.Source,
		ResultCount: len(resp.Results),
		Latency:     time.Since(started),
		Timestamp:   started,
	})
	writeMarkdown(w, search.FormatMarkdown(resp))
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.internalError(w, "doc lookup failed", err)
		return
	}
	if doc == nil {
		writeMarkdownStatus(w, http.StatusNotFound,
			fmt.Sprintf("## 文档不存在\n\n没有找到文档 `%s`。可通过 `/api/search` 查找文档ID。\n", id))
		return
	}

	if r.URL.Query().Get("summary") == "true" {
		cacheKey := doc.ID + ":" + doc.ContentHash
		if cached, ok := s.summaries.Get(cacheKey); ok {
			writeMarkdown(w, cached)
			return
		}
		rendered := summary.Summarize(doc.Content, doc.ID)
		s.summaries.Add(cacheKey, rendered)
		writeMarkdown(w, rendered)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<!-- source: %s -->\n", doc.SourceID)
	fmt.Fprintf(&sb, "<!-- path: %s -->\n", doc.Path)
	if doc.SourceURL != "" {
		fmt.Fprintf(&sb, "<!-- source_url: %s -->\n", doc.SourceURL)
	}
	if !doc.LastUpdated.IsZero() {
		fmt.Fprintf(&sb, "<!-- last_updated: %s -->\n", doc.LastUpdated.Format("2006-01-02"))
	}
	sb.WriteString("\n")
	sb.WriteString(doc.Content)
	writeMarkdown(w, sb.String())
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.Sources(r.Context())
	if err != nil {
		s.internalError(w, "sources listing failed", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("## 已接入的文档源\n\n")
	if len(sources) == 0 {
		sb.WriteString("暂无数据源。使用 sync 命令导入文档。\n")
		writeMarkdown(w, sb.String())
		return
	}
	sb.WriteString("| 名称 | ID | 文档数 | 最近同步 |\n|---|---|---|---|\n")
	for _, src := range sources {
		fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n",
			src.Name, src.ID, src.DocCount, formatSyncTime(src.LastSynced))
	}
	writeMarkdown(w, sb.String())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Categories(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		s.internalError(w, "categories listing failed", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("## 文档分类\n\n")
	currentSource := ""
	for _, c := range counts {
		if c.SourceID != currentSource {
			currentSource = c.SourceID
			fmt.Fprintf(&sb, "### %s\n\n", currentSource)
		}
		fmt.Fprintf(&sb, "- %s（%d 篇）\n", c.Category, c.Count)
	}
	if len(counts) == 0 {
		sb.WriteString("暂无分类。\n")
	}
	writeMarkdown(w, sb.String())
}

func (s *Server) handleCategoryDocs(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	category := r.PathValue("category")
	limit := clampInt(intParam(r, "limit", categoryLimitDefault), 1, categoryLimitMax)

	docs, err := s.store.DocumentsByCategory(r.Context(), source, category,
		r.URL.Query().Get("mode"), limit)
	if err != nil {
		s.internalError(w, "category listing failed", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s / %s\n\n", source, category)
	if len(docs) == 0 {
		sb.WriteString("该分类下没有文档。\n")
		writeMarkdown(w, sb.String())
		return
	}
	for _, doc := range docs {
		fmt.Fprintf(&sb, "- **%s**（`%s`）", doc.Title, doc.ID)
		if doc.APIPath != "" {
			fmt.Fprintf(&sb, " — `%s`", doc.APIPath)
		}
		sb.WriteString("\n")
	}
	writeMarkdown(w, sb.String())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	days := clampInt(intParam(r, "days", recentDaysDefault), 1, recentDaysMax)
	limit := clampInt(intParam(r, "limit", recentLimitDefault), 1, recentLimitMax)

	docs, err := s.store.RecentDocuments(r.Context(), r.URL.Query().Get("source"), days, limit)
	if err != nil {
		s.internalError(w, "recent listing failed", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 最近 %d 天更新的文档\n\n", days)
	if len(docs) == 0 {
		sb.WriteString("没有更新。\n")
		writeMarkdown(w, sb.String())
		return
	}
	for _, doc := range docs {
		fmt.Fprintf(&sb, "- %s **%s**（`%s`，来源：%s）\n",
			doc.LastUpdated.Format("2006-01-02"), doc.Title, doc.ID, doc.SourceID)
	}
	writeMarkdown(w, sb.String())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.Sources(r.Context())
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := HealthResponse{Status: "ok", Sources: []HealthSource{}, Search: s.metrics.Snapshot()}
	for _, src := range sources {
		resp.TotalDocs += src.DocCount
		resp.Sources = append(resp.Sources, HealthSource{
			ID:         src.ID,
			Name:       src.Name,
			DocCount:   src.DocCount,
			LastSynced: formatSyncTime(src.LastSynced),
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	docID, action, err := s.store.UpsertDocument(r.Context(), req.DocumentPayload.toInput(req.Source))
	if err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, UpsertResponse{DocID: docID, Action: string(action)})
}

func (s *Server) handleBulkUpsert(w http.ResponseWriter, r *http.Request) {
	var req BulkUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Source == "" {
		writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{Error: "source is required"})
		return
	}

	inputs := make([]store.UpsertInput, 0, len(req.Documents))
	for _, doc := range req.Documents {
		inputs = append(inputs, doc.toInput(req.Source))
	}
	result, err := s.store.BulkUpsert(r.Context(), req.Source, req.SourceName, inputs)
	if err != nil {
		s.adminError(w, err)
		return
	}

	if len(req.ErrorCodes) > 0 {
		codes := make([]store.ErrorCode, 0, len(req.ErrorCodes))
		for _, ec := range req.ErrorCodes {
			code := store.ErrorCode{
				Code:        ec.Code,
				Message:     ec.Message,
				Description: ec.Description,
			}
			if ec.DocPath != "" {
				code.DocID = store.DocID(req.Source, ec.DocPath)
			}
			codes = append(codes, code)
		}
		if err := s.store.UpsertErrorCodes(r.Context(), req.Source, codes); err != nil {
			s.logger.Warn("error-code upsert failed",
				"event_name", "errcode_upsert_failed", "source", req.Source, "error", err)
		}
	}

	writeJSON(w, BulkUpsertResponse{
		Created:   result.Created,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, DeleteResponse{Deleted: deleted})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Reindex(r.Context())
	if err != nil {
		s.adminError(w, err)
		return
	}
	writeJSON(w, ReindexResponse{Reindexed: n})
}

// adminError maps structured errors to status codes on the JSON surface.
func (s *Server) adminError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: err.Error()}

	var fe *sferrors.FusionError
	if errors.As(err, &fe) {
		body.Code = fe.Code
		body.Suggestion = fe.Suggestion
		switch fe.Category {
		case sferrors.CategoryValidation, sferrors.CategoryIntegrity:
			status = http.StatusBadRequest
		case sferrors.CategoryNotFound:
			status = http.StatusNotFound
		}
	}
	writeJSONStatus(w, status, body)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "event_name", "http_internal_error", "error", err)
	writeMarkdownStatus(w, http.StatusInternalServerError,
		"## 服务器错误\n\n查询暂时不可用，请稍后重试。\n")
}

func writeMarkdown(w http.ResponseWriter, body string) {
	writeMarkdownStatus(w, http.StatusOK, body)
}

func writeMarkdownStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func formatSyncTime(t time.Time) string {
	if t.IsZero() {
		return "从未同步"
	}
	return t.Format("2006-01-02 15:04")
}
