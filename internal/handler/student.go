package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) upcomingOAs(c *gin.Context) {
	oas, err := h.svc.ListUpcomingOAs(c.Request.Context(), caller(c).Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcomingOAs": oas})
}

func (h *Handler) pastOAs(c *gin.Context) {
	oas, err := h.svc.ListPastOAs(c.Request.Context(), caller(c).Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pastOAs": oas})
}

func (h *Handler) eligibility(c *gin.Context) {
	status, err := h.svc.CheckEligibility(c.Request.Context(), caller(c).Subject, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) workflow(c *gin.Context) {
	steps, err := h.svc.StudentWorkflow(c.Request.Context(), caller(c).Subject, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

func (h *Handler) apply(c *gin.Context) {
	app, err := h.svc.Apply(c.Request.Context(), caller(c).Subject, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}
