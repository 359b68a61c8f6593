package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/http/middleware"
	"github.com/clipvault/go-clipvault-api/internal/services"
)

type stubClipSvc struct {
	save func(context.Context, string, string, string) (*services.SaveResult, error)
	get  func(context.Context, string, string) (*domain.ClipDetail, error)
}

func (s stubClipSvc) Save(ctx context.Context, uid, url, corr string) (*services.SaveResult, error) {
	if s.save != nil {
		return s.save(ctx, uid, url, corr)
	}
	return &services.SaveResult{ClipID: "stub", Status: services.StatusQueued}, nil
}

func (s stubClipSvc) Get(ctx context.Context, uid, clipID string) (*domain.ClipDetail, error) {
	if s.get != nil {
		return s.get(ctx, uid, clipID)
	}
	return nil, services.ErrClipNotFound
}

func newSearchRouter(t *testing.T, search stubSearchSvc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(stubClipSvc{}, search, stubCollSvc{})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.GET("/search", h.SearchClips)
	return r
}

func doSearch(r *gin.Engine, userID, rawQuery string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search?"+rawQuery, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSearchClips_OK(t *testing.T) {
	var gotUser string
	var gotReq services.SearchRequest
	stub := stubSearchSvc{search: func(ctx context.Context, uid string, req services.SearchRequest) (*services.SearchResult, error) {
		gotUser, gotReq = uid, req
		return &services.SearchResult{
			Items:      []domain.ClipDetail{{Clip: domain.Clip{ID: "c1", SourceURL: "https://example.com/a"}}},
			Total:      41,
			Page:       2,
			Limit:      20,
			TotalPages: 3,
			HasNext:    true,
			HasPrev:    true,
		}, nil
	}}
	r := newSearchRouter(t, stub)

	w := doSearch(r, "u1", "q=concurrency&tags=go,testing&page=2&limit=20")
	if w.Code != http.StatusOK {
		t.Fatalf("search -> %d body=%s", w.Code, w.Body.String())
	}

	if gotUser != "u1" {
		t.Fatalf("user = %q", gotUser)
	}
	if gotReq.Query != "concurrency" || gotReq.Page != 2 || gotReq.Limit != 20 {
		t.Fatalf("request wrong: %+v", gotReq)
	}
	if want := []string{"go", "testing"}; !reflect.DeepEqual(gotReq.Tags, want) {
		t.Fatalf("tags = %v, want %v", gotReq.Tags, want)
	}

	var out SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "c1" {
		t.Fatalf("results wrong: %+v", out.Results)
	}
	p := out.Pagination
	if p.Page != 2 || p.Limit != 20 || p.Total != 41 || p.TotalPages != 3 || !p.HasNext || !p.HasPrev {
		t.Fatalf("pagination wrong: %+v", p)
	}
}

func TestSearchClips_DefaultsApplied(t *testing.T) {
	var gotReq services.SearchRequest
	stub := stubSearchSvc{search: func(ctx context.Context, uid string, req services.SearchRequest) (*services.SearchResult, error) {
		gotReq = req
		return &services.SearchResult{Items: []domain.ClipDetail{}, Page: 1, Limit: services.DefaultSearchLimit}, nil
	}}
	r := newSearchRouter(t, stub)

	if w := doSearch(r, "u1", "q=x"); w.Code != http.StatusOK {
		t.Fatalf("search -> %d", w.Code)
	}
	if gotReq.Page != 1 || gotReq.Limit != services.DefaultSearchLimit {
		t.Fatalf("defaults not applied: %+v", gotReq)
	}
	if gotReq.Tags != nil {
		t.Fatalf("tags should be nil when absent, got %v", gotReq.Tags)
	}
}

func TestSearchClips_NoCriteria(t *testing.T) {
	stub := stubSearchSvc{search: func(ctx context.Context, uid string, req services.SearchRequest) (*services.SearchResult, error) {
		return nil, services.ErrNoSearchCriteria
	}}
	r := newSearchRouter(t, stub)

	w := doSearch(r, "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no criteria -> %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestSearchClips_Unauthorized(t *testing.T) {
	r := newSearchRouter(t, stubSearchSvc{})

	if w := doSearch(r, "", "q=x"); w.Code != http.StatusUnauthorized {
		t.Fatalf("no identity -> %d, want 401", w.Code)
	}
}

func TestSearchClips_ServiceError(t *testing.T) {
	stub := stubSearchSvc{search: func(ctx context.Context, uid string, req services.SearchRequest) (*services.SearchResult, error) {
		return nil, errors.New("boom")
	}}
	r := newSearchRouter(t, stub)

	w := doSearch(r, "u1", "q=x")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("service error -> %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeSearchFailed {
		t.Fatalf("code = %q", resp.Code)
	}
	// The underlying error stays in the logs; the body is fixed text.
	if resp.Message != "search failed" {
		t.Fatalf("message = %q, want generic text", resp.Message)
	}
}
