package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/preetsahil/MP/internal/ids"
	"github.com/preetsahil/MP/internal/placement"
)

type stepRequest struct {
	StepType placement.StepType `json:"step_type" binding:"required"`
	Details  map[string]any     `json:"details"`
}

func (r stepRequest) details() placement.StepDetails {
	return placement.DetailsFromMap(r.StepType, r.Details)
}

type rosterRequest struct {
	Students []any `json:"students" binding:"required"`
}

type linkRequest struct {
	StudentID any    `json:"studentId"`
	Link      string `json:"oaLink"`
	// Visibility defaults to true when omitted.
	Visibility *bool `json:"visibility"`
}

func (h *Handler) addStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := h.loadJob(c); !ok {
		return
	}
	job, err := h.svc.AddStep(c.Request.Context(), c.Param("id"), req.details())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) updateStep(c *gin.Context) {
	step, ok := stepParam(c)
	if !ok {
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := h.loadJob(c); !ok {
		return
	}
	job, err := h.svc.UpdateStep(c.Request.Context(), c.Param("id"), step, req.details())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) removeStep(c *gin.Context) {
	step, ok := stepParam(c)
	if !ok {
		return
	}
	if _, ok := h.loadJob(c); !ok {
		return
	}
	job, err := h.svc.RemoveStep(c.Request.Context(), c.Param("id"), step)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) reorderSteps(c *gin.Context) {
	var req struct {
		Order []int `json:"order" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := h.loadJob(c); !ok {
		return
	}
	job, err := h.svc.ReorderSteps(c.Request.Context(), c.Param("id"), req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) setEligible(c *gin.Context) {
	h.setRoster(c, h.svc.SetEligibleStudents)
}

func (h *Handler) setShortlisted(c *gin.Context) {
	h.setRoster(c, h.svc.SetShortlistedStudents)
}

type rosterFunc func(ctx context.Context, jobID string, step int, studentIDs []string) (placement.JobProfile, error)

func (h *Handler) setRoster(c *gin.Context, set rosterFunc) {
	step, ok := stepParam(c)
	if !ok {
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	students := ids.NormalizeAll(req.Students)
	if len(students) != len(req.Students) {
		badRequest(c, "students must be distinct identifiers")
		return
	}
	job, err := set(c.Request.Context(), c.Param("id"), step, students)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) setLinks(c *gin.Context) {
	step, ok := stepParam(c)
	if !ok {
		return
	}
	var req struct {
		Links []linkRequest `json:"links" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	links := make([]placement.OALink, 0, len(req.Links))
	for _, l := range req.Links {
		id, ok := ids.Normalize(l.StudentID)
		if !ok {
			badRequest(c, "every link needs a studentId")
			return
		}
		visible := l.Visibility == nil || *l.Visibility
		links = append(links, placement.OALink{StudentID: id, Link: l.Link, Visible: visible})
	}
	job, err := h.svc.SetOALinks(c.Request.Context(), c.Param("id"), step, links)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) setVisibility(c *gin.Context) {
	step, ok := stepParam(c)
	if !ok {
		return
	}
	var req struct {
		Visible *bool `json:"visible" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	job, err := h.svc.SetLinkVisibility(c.Request.Context(), c.Param("id"), step, c.Param("student"), *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
