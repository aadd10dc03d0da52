package server

import (
	"github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Extraction
	apiRoutes.POST("/extract", routes.ExtractHandler, middleware.RequirePermission("graph.extract"))
	apiRoutes.POST("/jobs", routes.CreateJobHandler, middleware.RequirePermission("job.create"))
	apiRoutes.GET("/jobs/:id", routes.GetJobHandler, middleware.RequirePermission("job.view"))

	// Graph operations
	apiRoutes.POST("/graphs/merge", routes.MergeGraphsHandler, middleware.RequirePermission("graph.edit"))
	apiRoutes.POST("/graphs/repair", routes.RepairGraphHandler, middleware.RequirePermission("graph.edit"))
	apiRoutes.POST("/graphs/validate", routes.ValidateGraphHandler)
	apiRoutes.POST("/graphs/clean", routes.CleanGraphHandler, middleware.RequirePermission("graph.edit"))
}
