package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/estimation/service"
	"github.com/scopewise/estimation-backend/internal/pdftext"
)

func (h *Handler) generateModules(c *gin.Context) {
	var req generateModulesReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "generate modules", err)
		return
	}

	res, err := h.svc.GenerateModules(c.Request.Context(), service.GenerateModulesInput{
		Input:    req.Input,
		Team:     req.team(),
		Duration: req.Duration,
	})
	if err != nil {
		h.fail(c, "generate modules", err)
		return
	}

	matched := res.Matched
	if matched == nil {
		matched = []domain.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "modules": res.Modules, "matched": matched})
}

func (h *Handler) estimateHours(c *gin.Context) {
	var req estimateHoursReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "estimate hours", err)
		return
	}

	suggestions, err := h.svc.EstimateHours(c.Request.Context(), service.EstimateHoursInput{
		Data:     req.Data,
		Duration: req.Duration,
	})
	if err != nil {
		h.fail(c, "estimate hours", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "suggestions": suggestions})
}

func (h *Handler) produceEstimate(c *gin.Context) {
	var req estimateReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "produce estimate", err)
		return
	}

	res, err := h.svc.ProduceEstimate(c.Request.Context(), service.EstimateRequest{
		Prompt:        req.Prompt,
		Correction:    req.Correction,
		CurrentFields: req.CurrentFields,
		ProjectID:     req.ProjectID,
		Name:          req.Name,
		Team:          req.Team,
		Duration:      req.Duration,
		Budget:        req.Budget,
	})
	if err != nil {
		h.fail(c, "produce estimate", err)
		return
	}

	status := http.StatusCreated
	if req.ProjectID != "" {
		status = http.StatusOK
	}
	body := gin.H{"ok": true, "id": res.ID, "estimate": res.Project}
	if res.Explanation != "" {
		body["explanation"] = res.Explanation
	}
	c.JSON(status, body)
}

func (h *Handler) refineSuggestions(c *gin.Context) {
	var req chatReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "refine suggestions", err)
		return
	}

	res, err := h.svc.RefineSuggestions(c.Request.Context(), service.ChatRequest{
		Suggestions: req.Suggestions,
		Context:     req.ProjectContext,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		h.fail(c, "refine suggestions", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) match(c *gin.Context) {
	var req matchReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "match", err)
		return
	}

	matches, err := h.svc.LookupMatches(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, "match", err)
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "matches": matches})
}

func (h *Handler) draftPlan(c *gin.Context) {
	var req planReq
	if err := bind(c, &req); err != nil {
		h.fail(c, "draft plan", err)
		return
	}

	content, err := h.svc.DraftPlan(c.Request.Context(), req.Prompt)
	if err != nil {
		h.fail(c, "draft plan", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "content": content})
}

func (h *Handler) extractPDF(c *gin.Context) {
	fh, err := c.FormFile(pdftext.FormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "No files were uploaded."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "extract pdf", err)
		return
	}
	defer f.Close()

	text, err := h.pdf.ExtractText(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.fail(c, "extract pdf", domain.Upstream("extract pdf", err))
		return
	}
	c.String(http.StatusOK, text)
}
