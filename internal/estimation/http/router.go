package http

import "github.com/gin-gonic/gin"

// Register attaches estimation routes to the given router group (normally /api/v1).
func (h *Handler) Register(rg *gin.RouterGroup) {
	useJSONFieldNames()

	estimates := rg.Group("/estimates")
	estimates.POST("", h.produceEstimate)
	estimates.POST("/modules", h.generateModules)
	estimates.POST("/hours", h.estimateHours)
	estimates.POST("/match", h.match)

	rg.POST("/suggestions/chat", h.refineSuggestions)
	rg.POST("/pdf/extract", h.extractPDF)
	rg.POST("/pdf/plan", h.draftPlan)

	projects := rg.Group("/projects")
	projects.POST("", h.createProject)
	projects.GET("", h.listProjects)
	projects.GET("/:id", h.getProject)
	projects.PUT("/:id", h.updateProject)
	projects.DELETE("/:id", h.deleteProject)
}
