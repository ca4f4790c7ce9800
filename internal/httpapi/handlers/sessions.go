package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/session"
)

type startSessionReq struct {
	AssistantID string `json:"assistantId"`
	StudentID   string `json:"studentId"`
}

// StartSession creates the live tutoring session and its video conversation.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.AssistantID == "" {
		req.AssistantID = h.Cfg.DefaultAssistantID
	}

	sess, err := h.SessionSvc.Start(c.Request.Context(), req.AssistantID, req.StudentID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, session.ErrAssistantNotFound):
			common.Fail(c, http.StatusNotFound, 40403, "assistant not found")
		default:
			log.Printf("session start failed assistant=%s err=%v", req.AssistantID, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to start session")
		}
		return
	}

	common.OK(c, gin.H{"session": sess})
}

type endSessionReq struct {
	Rating *int `json:"rating"`
}

// EndSession completes the session, optionally with a 1-5 rating.
func (h *Handler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")

	var req endSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty body

	sess, err := h.SessionSvc.End(c.Request.Context(), sessionID, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, session.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40402, "session not found")
		default:
			log.Printf("session end failed id=%s err=%v", sessionID, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to end session")
		}
		return
	}

	common.OK(c, gin.H{"session": sess})
}

// ListSessions serves the student's session history.
func (h *Handler) ListSessions(c *gin.Context) {
	studentID := c.Query("studentId")
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.SessionSvc.ListByStudent(c.Request.Context(), studentID, limit)
	if err != nil {
		if errors.Is(err, session.ErrValidation) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		log.Printf("session list failed student=%s err=%v", studentID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list sessions")
		return
	}

	common.OK(c, gin.H{"sessions": sessions})
}
