package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

func (h *Handler) createProject(c *gin.Context) {
	var req projectReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "create project", err)
		return
	}

	p := req.toProject("")
	id, err := h.svc.CreateProject(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id, "project": p})
}

func (h *Handler) listProjects(c *gin.Context) {
	items, err := h.svc.ListProjects(c.Request.Context())
	if err != nil {
		h.fail(c, "list projects", err)
		return
	}
	if items == nil {
		items = []domain.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.svc.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) updateProject(c *gin.Context) {
	var req projectReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "update project", err)
		return
	}

	p := req.toProject(c.Param("id"))
	if err := h.svc.UpdateProject(c.Request.Context(), p); err != nil {
		h.fail(c, "update project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.svc.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
