package user

import (
	"account-service/internal/auth"
	"account-service/internal/middleware"
	"account-service/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Route role sets.
var (
	ReadRoles   = []auth.Role{auth.RoleRoot, auth.RoleGeneralManager, auth.RoleManager}
	WriteRoles  = []auth.Role{auth.RoleRoot, auth.RoleGeneralManager}
	DeleteRoles = []auth.Role{auth.RoleRoot}
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, gate *middleware.AuthMiddleware) {
	read := middleware.GinRequireAuth(gate, ReadRoles...)
	write := middleware.GinRequireAuth(gate, WriteRoles...)
	del := middleware.GinRequireAuth(gate, DeleteRoles...)

	users := r.Group("/users")
	users.GET("", read, h.list)
	users.POST("", write, h.create)
	users.GET("/account/:account_id", read, h.listByAccount)
	users.GET("/branch/:branch_id", read, h.listByBranch)
	users.GET("/role/:role", read, h.listByRole)
	users.GET("/:id", read, h.get)
	users.PUT("/:id", write, h.update)
	users.DELETE("/:id", del, h.delete)
	users.POST("/:id/deactivate", write, h.deactivate)
	users.POST("/:id/activate", write, h.activate)
}

func (h *Handler) list(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, auth.Invalid("bind create user", "invalid request body"))
		return
	}
	u, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, auth.Invalid("bind update user", "invalid request body"))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

func (h *Handler) deactivate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "status": StatusInactive})
}

func (h *Handler) activate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Activate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "status": StatusActive})
}

func (h *Handler) listByAccount(c *gin.Context) {
	id, ok := uuidParam(c, "account_id")
	if !ok {
		return
	}
	users, err := h.svc.ListByAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func (h *Handler) listByBranch(c *gin.Context) {
	id, ok := uuidParam(c, "branch_id")
	if !ok {
		return
	}
	users, err := h.svc.ListByBranch(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func (h *Handler) listByRole(c *gin.Context) {
	users, err := h.svc.ListByRole(c.Request.Context(), c.Param("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, auth.Invalid("parse "+name, name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
