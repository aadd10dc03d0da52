package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/logger"

	"github.com/labstack/echo/v4"
)

type jobResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// CreateJobHandler stores the posted text and queues it for the worker.
func CreateJobHandler(c echo.Context) error {
	type createJobBody struct {
		Text  string `json:"text" validate:"required"`
		Clean bool   `json:"clean"`
	}

	data := new(createJobBody)
	if err := bindAndValidate(c, data); err != nil {
		return invalidBody(c, err)
	}

	jobs := c.(*middleware.AppContext).App.Jobs
	if jobs == nil {
		return c.JSON(http.StatusServiceUnavailable, jobResponse{Message: "Jobs are not configured"})
	}

	jobID, err := util.NewID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	if err := jobs.Submit(c.Request().Context(), jobID, data.Text, data.Clean); err != nil {
		logger.Error("[Server] Failed to submit job", "job_id", jobID, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	logger.Info("[Server] Job queued", "job_id", jobID, "user", c.(*middleware.AppContext).User.UserID)
	return c.JSON(http.StatusAccepted, jobResponse{Message: "Job queued", JobID: jobID})
}

// GetJobHandler returns a download link for the graph of a job. The graph
// is available as soon as the first chunk has been extracted.
func GetJobHandler(c echo.Context) error {
	jobID := c.Param("id")
	if !util.IsNanoid(jobID) {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid job id"})
	}

	jobs := c.(*middleware.AppContext).App.Jobs
	if jobs == nil {
		return c.JSON(http.StatusServiceUnavailable, jobResponse{Message: "Jobs are not configured"})
	}

	link, err := jobs.GraphLink(c.Request().Context(), jobID)
	if err != nil {
		if errors.Is(err, middleware.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, jobResponse{Message: "Graph not available yet", JobID: jobID})
		}
		logger.Error("[Server] Failed to look up job", "job_id", jobID, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, jobResponse{Message: "Graph available", JobID: jobID, URL: link})
}
