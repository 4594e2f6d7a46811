package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/domain/role"
)

type RoleStore interface {
	GetAll(ctx context.Context) ([]role.Role, error)
	Get(ctx context.Context, id string) (role.Role, error)
	Create(ctx context.Context, req role.CreateRoleRequest) (role.Role, error)
	Update(ctx context.Context, id string, req role.UpdateRoleRequest) (role.Role, error)
	Delete(ctx context.Context, id string) (role.Role, error)
	ConnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error)
	DisconnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error)
	AddUser(ctx context.Context, userID, roleID string) (role.Role, error)
	RemoveUser(ctx context.Context, userID, roleID string) (role.Role, error)
}

// Invalidator drops cached permission sets after a role changes.
type Invalidator interface {
	Invalidate()
}

type RolesHandler struct {
	roles   RoleStore
	authz   Invalidator
	timeout time.Duration
}

func NewRolesHandler(roles RoleStore, authz Invalidator) *RolesHandler {
	return &RolesHandler{roles: roles, authz: authz, timeout: 3 * time.Second}
}

func (h *RolesHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	roles, err := h.roles.GetAll(cctx)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	respondRoleJSON(ctx, roles)
}

func (h *RolesHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	r, err := h.roles.Get(cctx, ctx.Param("id"))
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	respondRoleJSON(ctx, r)
}

func (h *RolesHandler) Create(ctx *gin.Context) {
	var req role.CreateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.mutate(ctx, http.StatusCreated, func(cctx context.Context) (role.Role, error) {
		return h.roles.Create(cctx, req)
	})
}

func (h *RolesHandler) Update(ctx *gin.Context) {
	var req role.UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Empty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.Update(cctx, ctx.Param("id"), req)
	})
}

func (h *RolesHandler) Delete(ctx *gin.Context) {
	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.Delete(cctx, ctx.Param("id"))
	})
}

func (h *RolesHandler) ConnectPermission(ctx *gin.Context) {
	permID, ok := permissionParam(ctx)
	if !ok {
		return
	}

	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.ConnectPermission(cctx, ctx.Param("id"), permID)
	})
}

func (h *RolesHandler) DisconnectPermission(ctx *gin.Context) {
	permID, ok := permissionParam(ctx)
	if !ok {
		return
	}

	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.DisconnectPermission(cctx, ctx.Param("id"), permID)
	})
}

func (h *RolesHandler) AddUser(ctx *gin.Context) {
	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.AddUser(cctx, ctx.Param("userId"), ctx.Param("id"))
	})
}

func (h *RolesHandler) RemoveUser(ctx *gin.Context) {
	h.mutate(ctx, http.StatusOK, func(cctx context.Context) (role.Role, error) {
		return h.roles.RemoveUser(cctx, ctx.Param("userId"), ctx.Param("id"))
	})
}

func (h *RolesHandler) mutate(ctx *gin.Context, status int, fn func(context.Context) (role.Role, error)) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	r, err := fn(cctx)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.authz.Invalidate()
	ctx.JSON(status, r)
}

func permissionParam(ctx *gin.Context) (int64, bool) {
	permID, err := strconv.ParseInt(ctx.Param("permId"), 10, 64)
	if err != nil || permID < 0 {
		RespondBadRequest(ctx, "Invalid permission id", gin.H{"field": "permId"})
		return 0, false
	}
	return permID, true
}
