package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/domain/role"
	"github.com/tingyu91/snsjf/internal/http/handlers"
	"github.com/tingyu91/snsjf/internal/repo/memory"
)

type countingInvalidator struct {
	n int
}

func (c *countingInvalidator) Invalidate() { c.n++ }

func newRolesRouter(t *testing.T) (*gin.Engine, *memory.RolesRepo, *countingInvalidator) {
	t.Helper()

	repo := memory.NewRolesRepo()
	inv := &countingInvalidator{}
	h := handlers.NewRolesHandler(repo, inv)

	r := gin.New()
	r.GET("/roles", h.List)
	r.POST("/roles", h.Create)
	r.GET("/roles/:id", h.Get)
	r.PUT("/roles/:id", h.Update)
	r.DELETE("/roles/:id", h.Delete)
	r.POST("/roles/:id/permissions/:permId", h.ConnectPermission)
	r.DELETE("/roles/:id/permissions/:permId", h.DisconnectPermission)
	r.POST("/roles/:id/users/:userId", h.AddUser)
	r.DELETE("/roles/:id/users/:userId", h.RemoveUser)
	return r, repo, inv
}

func TestRoles_CreateConnectDisconnect(t *testing.T) {
	r, repo, inv := newRolesRouter(t)

	w := doJSON(r, http.MethodPost, "/roles", `{"name":"editors"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	created, err := repo.FindByName(context.Background(), "editors")
	if err != nil {
		t.Fatalf("role not stored: %v", err)
	}

	base := "/roles/" + created.ID + "/permissions/7"
	doJSON(r, http.MethodPost, base, "")
	w = doJSON(r, http.MethodPost, base, "")
	if !bodyContains(w, `"permissions":[7,7]`) {
		t.Fatalf("connect must append without dedup, got %s", w.Body.String())
	}

	w = doJSON(r, http.MethodDelete, base, "")
	if w.Code != http.StatusOK || !bodyContains(w, `"permissions":[]`) {
		t.Fatalf("disconnect must remove all, got %d %s", w.Code, w.Body.String())
	}

	if inv.n != 4 {
		t.Fatalf("expected 4 invalidations, got %d", inv.n)
	}
}

func TestRoles_UnknownRoleIs404(t *testing.T) {
	r, _, inv := newRolesRouter(t)

	w := doJSON(r, http.MethodPost, "/roles/missing/users/u1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
	}
	if !bodyContains(w, `"message"`) {
		t.Fatalf("expected message, got %s", w.Body.String())
	}
	if inv.n != 0 {
		t.Fatalf("failed mutation must not invalidate")
	}
}

func TestRoles_BadPermissionID(t *testing.T) {
	r, repo, _ := newRolesRouter(t)

	created, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "ops"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := doJSON(r, http.MethodPost, "/roles/"+created.ID+"/permissions/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRoles_DuplicateNameIs400(t *testing.T) {
	r, _, _ := newRolesRouter(t)

	doJSON(r, http.MethodPost, "/roles", `{"name":"ops"}`)
	w := doJSON(r, http.MethodPost, "/roles", `{"name":"ops"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !bodyContains(w, "Name already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRoles_RenameToTakenNameIs400(t *testing.T) {
	r, repo, inv := newRolesRouter(t)

	if _, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "editor"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	viewer, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "viewer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := doJSON(r, http.MethodPut, "/roles/"+viewer.ID, `{"name":"editor"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
	if !bodyContains(w, "Name already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if inv.n != 0 {
		t.Fatalf("failed rename must not invalidate")
	}
}

func TestRoles_UpdateRequiresAField(t *testing.T) {
	r, repo, _ := newRolesRouter(t)

	created, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "ops"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := doJSON(r, http.MethodPut, "/roles/"+created.ID, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPut, "/roles/"+created.ID, `{"name":"operators","id":"hijack"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if !bodyContains(w, `"id":"`+created.ID+`"`) || !bodyContains(w, `"name":"operators"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRoles_ListSupportsETag(t *testing.T) {
	r, repo, _ := newRolesRouter(t)

	if _, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "ops"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	w := doJSON(r, http.MethodGet, "/roles", "")
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" {
		t.Fatalf("expected 200 with etag, got %d %q", w.Code, etag)
	}

	if w.Header().Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("role reads must not be shared-cacheable, got %q", w.Header().Get("Cache-Control"))
	}

	req, _ := http.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := serve(r, req)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w2.Code)
	}

	req, _ = http.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("If-None-Match", `"stale", W/`+etag)
	if w3 := serve(r, req); w3.Code != http.StatusNotModified {
		t.Fatalf("weak match should be 304, got %d", w3.Code)
	}

	if _, err := repo.Create(context.Background(), role.CreateRoleRequest{Name: "dev"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	req, _ = http.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("If-None-Match", etag)
	if w4 := serve(r, req); w4.Code != http.StatusOK {
		t.Fatalf("changed listing should be 200, got %d", w4.Code)
	}
}
