package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/http/middleware"
	"github.com/clipvault/go-clipvault-api/internal/repo"
	"github.com/clipvault/go-clipvault-api/internal/services"
)

// testCollStore proxies the repo free functions, mirroring the shim the
// router installs.
type testCollStore struct{}

func (testCollStore) CreateCollection(ctx context.Context, db *gorm.DB, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error) {
	return repo.CreateCollection(ctx, db, userID, name, description, isPublic, colorHex)
}
func (testCollStore) GetCollection(ctx context.Context, db *gorm.DB, userID, collID string) (*domain.Collection, error) {
	return repo.GetCollection(ctx, db, userID, collID)
}
func (testCollStore) CountCollections(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountCollections(ctx, db, userID)
}
func (testCollStore) ListCollectionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Collection, error) {
	return repo.ListCollectionsPage(ctx, db, userID, offset, limit)
}
func (testCollStore) UpdateCollection(ctx context.Context, db *gorm.DB, userID, collID string, updates map[string]any) error {
	return repo.UpdateCollection(ctx, db, userID, collID, updates)
}
func (testCollStore) DeleteCollection(ctx context.Context, db *gorm.DB, userID, collID string) error {
	return repo.DeleteCollection(ctx, db, userID, collID)
}
func (testCollStore) AddClipToCollection(ctx context.Context, db *gorm.DB, collID, clipID string) (bool, error) {
	return repo.AddClipToCollection(ctx, db, collID, clipID)
}
func (testCollStore) RemoveClipFromCollection(ctx context.Context, db *gorm.DB, collID, clipID string) error {
	return repo.RemoveClipFromCollection(ctx, db, collID, clipID)
}
func (testCollStore) UserSavedClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error) {
	return repo.UserSavedClip(ctx, db, userID, clipID)
}

// newCollectionRouter wires the real CollectionService over a fresh DB so
// the ETag pre-check (which needs the concrete service) is exercised.
func newCollectionRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	svc := services.NewCollectionService(db, testCollStore{})
	h := New(stubClipSvc{}, stubSearchSvc{}, svc)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.POST("/collections", h.CreateCollection)
	r.GET("/collections", h.ListCollections)
	r.GET("/collections/:id", h.GetCollection)
	r.PATCH("/collections/:id", h.UpdateCollection)
	r.DELETE("/collections/:id", h.DeleteCollection)
	r.POST("/collections/:id/clips", h.AddClipToCollection)
	r.DELETE("/collections/:id/clips/:clipId", h.RemoveClipFromCollection)
	return r, db
}

func doJSON(r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	r.ServeHTTP(w, req)
	return w
}

func mustCreateCollection(t *testing.T, r *gin.Engine, userID, name string) domain.Collection {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/collections", userID, fmt.Sprintf(`{"name":%q}`, name))
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}
	var coll domain.Collection
	if err := json.Unmarshal(w.Body.Bytes(), &coll); err != nil {
		t.Fatalf("json: %v", err)
	}
	return coll
}

func TestCreateCollection(t *testing.T) {
	r, _ := newCollectionRouter(t)

	coll := mustCreateCollection(t, r, "u1", "Watch later")
	if coll.Name != "Watch later" || coll.UserID != "u1" {
		t.Fatalf("created wrong: %+v", coll)
	}
	if _, err := uuid.Parse(coll.ID); err != nil {
		t.Fatalf("id not a UUID: %q", coll.ID)
	}

	for _, body := range []string{`{bad`, `{}`, `{"name":"   "}`} {
		if w := doJSON(r, http.MethodPost, "/collections", "u1", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %s -> %d, want 400", body, w.Code)
		}
	}

	if w := doJSON(r, http.MethodPost, "/collections", "", `{"name":"x"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("no identity -> %d, want 401", w.Code)
	}
}

func TestCollectionLifecycle(t *testing.T) {
	r, _ := newCollectionRouter(t)
	coll := mustCreateCollection(t, r, "u1", "refs")

	// Fetch.
	w := doJSON(r, http.MethodGet, "/collections/"+coll.ID, "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}

	// Ownership: a foreign user sees 404, not 403.
	if w := doJSON(r, http.MethodGet, "/collections/"+coll.ID, "u2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign get -> %d, want 404", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/collections/not-a-uuid", "u1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d, want 400", w.Code)
	}

	// Partial update.
	w = doJSON(r, http.MethodPatch, "/collections/"+coll.ID, "u1", `{"name":"renamed","is_public":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch -> %d body=%s", w.Code, w.Body.String())
	}
	var updated domain.Collection
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json: %v", err)
	}
	if updated.Name != "renamed" || !updated.IsPublic {
		t.Fatalf("patch not applied: %+v", updated)
	}

	if w := doJSON(r, http.MethodPatch, "/collections/"+coll.ID, "u1", `{"name":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank rename -> %d, want 400", w.Code)
	}

	// Delete, then everything 404s.
	if w := doJSON(r, http.MethodDelete, "/collections/"+coll.ID, "u1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/collections/"+coll.ID, "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("double delete -> %d, want 404", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/collections/"+coll.ID, "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete -> %d, want 404", w.Code)
	}
}

func TestListCollections_ETag304(t *testing.T) {
	r, _ := newCollectionRouter(t)
	mustCreateCollection(t, r, "u1", "a")
	mustCreateCollection(t, r, "u1", "b")

	first := doJSON(r, http.MethodGet, "/collections", "u1", "")
	if first.Code != http.StatusOK {
		t.Fatalf("list -> %d", first.Code)
	}
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag on the list response")
	}

	var out ListCollectionsResponse
	if err := json.Unmarshal(first.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Collections) != 2 || out.Pagination.Total != 2 {
		t.Fatalf("list wrong: %+v", out)
	}

	// Unchanged data replays as 304.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("replay -> %d, want 304", w.Code)
	}

	// A new collection invalidates the tag.
	mustCreateCollection(t, r, "u1", "c")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag -> %d, want 200", w.Code)
	}
}

func TestListCollections_Pagination(t *testing.T) {
	r, _ := newCollectionRouter(t)
	for i := 0; i < 5; i++ {
		mustCreateCollection(t, r, "u1", fmt.Sprintf("c%d", i))
	}

	w := doJSON(r, http.MethodGet, "/collections?page=2&page_size=2", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var out ListCollectionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	p := out.Pagination
	if len(out.Collections) != 2 || p.Total != 5 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination wrong: %+v", out)
	}
}

func TestListCollections_IncludeCounts(t *testing.T) {
	r, db := newCollectionRouter(t)
	ctx := context.Background()
	full := mustCreateCollection(t, r, "u1", "full")
	empty := mustCreateCollection(t, r, "u1", "empty")

	for _, url := range []string{"https://example.com/1", "https://example.com/2"} {
		clipID, _, err := repo.UpsertClip(ctx, db, url)
		if err != nil {
			t.Fatalf("seed clip: %v", err)
		}
		if _, err := repo.AddClipToCollection(ctx, db, full.ID, clipID); err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}

	w := doJSON(r, http.MethodGet, "/collections?include_counts=true", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var out ListCollectionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	counts := map[string]int64{}
	for _, item := range out.Collections {
		if item.ClipCount == nil {
			t.Fatalf("clip_count missing for %s", item.Name)
		}
		counts[item.ID] = *item.ClipCount
	}
	if counts[full.ID] != 2 || counts[empty.ID] != 0 {
		t.Fatalf("counts wrong: %v", counts)
	}

	// Counts are opt-in: the plain list omits the field.
	w = doJSON(r, http.MethodGet, "/collections", "u1", "")
	out = ListCollectionsResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	for _, item := range out.Collections {
		if item.ClipCount != nil {
			t.Fatalf("clip_count must be absent without include_counts")
		}
	}
}

func TestCollectionMembershipEndpoints(t *testing.T) {
	r, db := newCollectionRouter(t)
	ctx := context.Background()
	coll := mustCreateCollection(t, r, "u1", "refs")

	clipID, _, err := repo.UpsertClip(ctx, db, "https://example.com/member")
	if err != nil {
		t.Fatalf("seed clip: %v", err)
	}

	// The clip must be saved by the user before it can be collected.
	body := fmt.Sprintf(`{"clip_id":%q}`, clipID)
	if w := doJSON(r, http.MethodPost, "/collections/"+coll.ID+"/clips", "u1", body); w.Code != http.StatusNotFound {
		t.Fatalf("unsaved clip -> %d, want 404", w.Code)
	}
	if _, err := repo.LinkUserClip(ctx, db, "u1", clipID); err != nil {
		t.Fatalf("link: %v", err)
	}

	if w := doJSON(r, http.MethodPost, "/collections/"+coll.ID+"/clips", "u1", body); w.Code != http.StatusNoContent {
		t.Fatalf("add -> %d body=%s", w.Code, w.Body.String())
	}
	// Re-adding is a silent no-op.
	if w := doJSON(r, http.MethodPost, "/collections/"+coll.ID+"/clips", "u1", body); w.Code != http.StatusNoContent {
		t.Fatalf("re-add -> %d", w.Code)
	}

	if w := doJSON(r, http.MethodPost, "/collections/"+coll.ID+"/clips", "u1", `{"clip_id":"nope"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad clip id -> %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/collections/"+coll.ID+"/clips", "u2", body); w.Code != http.StatusNotFound {
		t.Fatalf("foreign add -> %d, want 404", w.Code)
	}

	if w := doJSON(r, http.MethodDelete, "/collections/"+coll.ID+"/clips/"+clipID, "u1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("remove -> %d", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/collections/"+coll.ID+"/clips/"+clipID, "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("double remove -> %d, want 404", w.Code)
	}
}

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 9, 9},
		{"3", 9, 3},
		{"007", 9, 7},
		{" 7", 9, 9},  // no implicit trimming
		{"-2", 9, -2}, // clamping is the caller's job
		{"nope", 9, 9},
		{"99999999999999999999", 9, 9}, // overflow
	}
	for _, tc := range cases {
		if got := atoiDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("atoiDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}
