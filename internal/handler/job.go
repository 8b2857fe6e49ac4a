package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/preetsahil/MP/internal/auth"
	"github.com/preetsahil/MP/internal/ids"
	"github.com/preetsahil/MP/internal/placement"
)

// listJobs shows students approved postings only and recruiters their own.
func (h *Handler) listJobs(c *gin.Context) {
	who := caller(c)
	status := placement.JobStatus(c.Query("status"))
	if who.Role == auth.RoleStudent {
		status = placement.StatusApproved
	}
	jobs, err := h.svc.ListJobs(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]placement.JobProfile, 0, len(jobs))
	for _, j := range jobs {
		switch who.Role {
		case auth.RoleStudent:
			out = append(out, j.Redacted())
		case auth.RoleRecruiter:
			if ids.Equal(j.RecruiterID, who.Subject) {
				out = append(out, j)
			}
		default:
			out = append(out, j)
		}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (h *Handler) getJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	if caller(c).Role == auth.RoleStudent {
		if job.Status != placement.StatusApproved && job.Status != placement.StatusCompleted {
			respondError(c, placement.ErrNotFound)
			return
		}
		job = job.Redacted()
	}
	c.JSON(http.StatusOK, job)
}

// loadJob fetches the job named in the path and refuses recruiters access to
// postings they do not own.
func (h *Handler) loadJob(c *gin.Context) (placement.JobProfile, bool) {
	job, err := h.svc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return placement.JobProfile{}, false
	}
	who := caller(c)
	if who.Role == auth.RoleRecruiter && !ids.Equal(job.RecruiterID, who.Subject) {
		c.JSON(http.StatusForbidden, gin.H{"error": "job belongs to another recruiter"})
		return placement.JobProfile{}, false
	}
	return job, true
}

func (h *Handler) createJob(c *gin.Context) {
	var job placement.JobProfile
	if err := c.ShouldBindJSON(&job); err != nil {
		badRequest(c, err.Error())
		return
	}
	if who := caller(c); who.Role == auth.RoleRecruiter {
		job.RecruiterID = who.Subject
	} else {
		job.RecruiterID = ids.MustNormalize(job.RecruiterID)
	}
	created, err := h.svc.CreateJob(c.Request.Context(), job)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) deleteJob(c *gin.Context) {
	if err := h.svc.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) transition(action placement.ApprovalAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := h.svc.TransitionJob(c.Request.Context(), c.Param("id"), action)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func (h *Handler) updateStudentStatus(c *gin.Context) {
	var upd placement.StatusUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.svc.UpdateStudentStatus(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) screen(c *gin.Context) {
	msg, err := h.svc.RequestScreening(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message_id": msg.ID, "enqueued_at": msg.EnqueuedAt})
}
