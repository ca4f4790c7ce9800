package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/escalation"
	"github.com/DphenomenalALU/class-mate/internal/httpapi/middleware"
)

type createEscalationReq struct {
	SessionID   string `json:"sessionId"`
	AssistantID string `json:"assistantId"`
	Reason      string `json:"reason"`
	Source      string `json:"source"`
}

// CreateEscalation records a facilitator-review request raised from a live
// session by the student or by the AI itself.
func (h *Handler) CreateEscalation(c *gin.Context) {
	var req createEscalationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.SessionID == "" || req.AssistantID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "sessionId and assistantId are required")
		return
	}

	esc, err := h.EscalationSvc.Create(c.Request.Context(), req.SessionID, req.AssistantID, req.Reason, req.Source)
	if err != nil {
		switch {
		case errors.Is(err, escalation.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, escalation.ErrSessionNotFound):
			common.Fail(c, http.StatusNotFound, 40402, "session not found")
		case errors.Is(err, escalation.ErrAssistantNotFound):
			common.Fail(c, http.StatusNotFound, 40403, "assistant not found")
		default:
			log.Printf("escalation create failed session=%s err=%v", req.SessionID, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to create escalation")
		}
		return
	}

	common.OK(c, gin.H{"escalation": esc})
}

// ListEscalations backs the facilitator dashboard.
func (h *Handler) ListEscalations(c *gin.Context) {
	status := c.Query("status")

	escs, err := h.EscalationSvc.List(c.Request.Context(), status, 0)
	if err != nil {
		if errors.Is(err, escalation.ErrValidation) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		log.Printf("escalation list failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list escalations")
		return
	}

	common.OK(c, gin.H{"escalations": escs})
}

// ResolveEscalation closes an open escalation on behalf of a facilitator.
func (h *Handler) ResolveEscalation(c *gin.Context) {
	id := c.Param("id")
	uid, _ := c.Get(middleware.UserIDKey)
	facilitatorID, _ := uid.(string)

	esc, err := h.EscalationSvc.Resolve(c.Request.Context(), id, facilitatorID)
	if err != nil {
		switch {
		case errors.Is(err, escalation.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, escalation.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40404, "escalation not found")
		default:
			log.Printf("escalation resolve failed id=%s err=%v", id, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to resolve escalation")
		}
		return
	}

	common.OK(c, gin.H{"escalation": esc})
}
