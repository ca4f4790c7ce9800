package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/queue"
)

type queueRequestReq struct {
	AssistantID     string `json:"assistantId"`
	StudentClientID string `json:"studentClientId"`
}

// RequestQueueAdmission decides active-vs-queued for the caller.
func (h *Handler) RequestQueueAdmission(c *gin.Context) {
	var req queueRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.AssistantID == "" {
		req.AssistantID = h.Cfg.DefaultAssistantID
	}
	if req.AssistantID == "" || req.StudentClientID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "assistantId and studentClientId are required")
		return
	}

	adm, err := h.QueueSvc.RequestAdmission(c.Request.Context(), req.AssistantID, req.StudentClientID)
	if err != nil {
		if errors.Is(err, queue.ErrValidation) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		log.Printf("queue request failed assistant=%s err=%v", req.AssistantID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to join queue")
		return
	}

	common.OK(c, gin.H{
		"status":   adm.Status,
		"position": adm.Position,
		"queueId":  adm.QueueID,
	})
}

type queueCompleteReq struct {
	QueueID string `json:"queueId"`
}

// CompleteQueueEntry ends the caller's claim and promotes the next student.
func (h *Handler) CompleteQueueEntry(c *gin.Context) {
	var req queueCompleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.QueueID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "queueId is required")
		return
	}

	promoted, err := h.QueueSvc.CompleteSession(c.Request.Context(), req.QueueID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "queue entry not found")
			return
		}
		log.Printf("queue complete failed id=%s err=%v", req.QueueID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to complete session")
		return
	}

	if promoted == nil {
		common.OK(c, gin.H{"promoted": nil})
		return
	}
	common.OK(c, gin.H{"promoted": gin.H{"id": promoted.ID, "position": promoted.Position}})
}

// CancelQueueEntry is the explicit leave-queue operation.
func (h *Handler) CancelQueueEntry(c *gin.Context) {
	var req queueCompleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.QueueID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "queueId is required")
		return
	}

	promoted, err := h.QueueSvc.Cancel(c.Request.Context(), req.QueueID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "queue entry not found")
			return
		}
		log.Printf("queue cancel failed id=%s err=%v", req.QueueID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to leave queue")
		return
	}

	resp := gin.H{"status": queue.StatusCancelled, "promoted": nil}
	if promoted != nil {
		resp["promoted"] = gin.H{"id": promoted.ID, "position": promoted.Position}
	}
	common.OK(c, resp)
}

// GetQueueStatus serves the status poll loop on the student waiting page.
func (h *Handler) GetQueueStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "id is required")
		return
	}

	status, position, err := h.QueueSvc.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "queue entry not found")
			return
		}
		log.Printf("queue status failed id=%s err=%v", id, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to fetch queue status")
		return
	}

	common.OK(c, gin.H{"status": status, "position": position})
}
