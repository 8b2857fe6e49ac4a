// Package handler exposes the placement service over HTTP.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/preetsahil/MP/internal/auth"
	"github.com/preetsahil/MP/internal/placement"
)

// Handler serves the /v1 API.
type Handler struct {
	svc *placement.Service
}

// New returns a handler over svc.
func New(svc *placement.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts every route on v1, which must already run auth.Authenticate.
func (h *Handler) Register(v1 *gin.RouterGroup) {
	student := auth.RequireRole(auth.RoleStudent)
	editor := auth.RequireRole(auth.RoleRecruiter, auth.RoleStaff)
	staff := auth.RequireRole(auth.RoleStaff)

	v1.GET("/me/oas/upcoming", student, h.upcomingOAs)
	v1.GET("/me/oas/past", student, h.pastOAs)

	jobs := v1.Group("/jobs")
	jobs.GET("", h.listJobs)
	jobs.GET("/:id", h.getJob)
	jobs.POST("", editor, h.createJob)
	jobs.DELETE("/:id", staff, h.deleteJob)
	for _, action := range []placement.ApprovalAction{
		placement.ActionApprove, placement.ActionReject, placement.ActionComplete, placement.ActionIncomplete,
	} {
		jobs.PUT("/:id/"+string(action), staff, h.transition(action))
	}

	jobs.GET("/:id/eligibility", student, h.eligibility)
	jobs.GET("/:id/workflow", student, h.workflow)
	jobs.POST("/:id/apply", student, h.apply)

	jobs.POST("/:id/steps", editor, h.addStep)
	jobs.PUT("/:id/steps/:step", editor, h.updateStep)
	jobs.DELETE("/:id/steps/:step", editor, h.removeStep)
	jobs.PUT("/:id/workflow/order", editor, h.reorderSteps)

	jobs.PUT("/:id/steps/:step/eligible", staff, h.setEligible)
	jobs.PUT("/:id/steps/:step/shortlisted", staff, h.setShortlisted)
	jobs.PUT("/:id/steps/:step/links", staff, h.setLinks)
	jobs.PUT("/:id/steps/:step/links/:student/visibility", staff, h.setVisibility)
	jobs.POST("/:id/screen", staff, h.screen)

	v1.PATCH("/students/:id/status", staff, h.updateStudentStatus)
}

// respondError maps domain errors onto status codes. Anything unrecognized is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var verr placement.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, placement.ErrNotFound), errors.Is(err, placement.ErrStepIndex):
		status = http.StatusNotFound
	case errors.Is(err, placement.ErrWorkflowLocked),
		errors.Is(err, placement.ErrAlreadyApplied),
		errors.Is(err, placement.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, placement.ErrNotEligible),
		errors.Is(err, placement.ErrDeadlineOver),
		errors.Is(err, placement.ErrJobNotOpen),
		errors.Is(err, placement.ErrDebarred):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func caller(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

func stepParam(c *gin.Context) (int, bool) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		badRequest(c, "step must be a position number")
		return 0, false
	}
	return step, true
}
