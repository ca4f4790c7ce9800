package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/httpapi/middleware"
)

type createAssistantReq struct {
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	PersonaID  string `json:"personaId"`
	ReplicaID  string `json:"replicaId"`
}

// CreateAssistant registers a new course assistant for the calling facilitator.
func (h *Handler) CreateAssistant(c *gin.Context) {
	var req createAssistantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var createdBy *string
	if uid, ok := c.Get(middleware.UserIDKey); ok {
		if s, ok := uid.(string); ok && s != "" {
			createdBy = &s
		}
	}

	a, err := h.AssistantSvc.Create(c.Request.Context(), req.CourseCode, req.CourseName, req.PersonaID, req.ReplicaID, createdBy)
	if err != nil {
		if errors.Is(err, assistant.ErrValidation) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		log.Printf("assistant create failed course=%s err=%v", req.CourseCode, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create assistant")
		return
	}

	common.OK(c, gin.H{"assistant": a})
}

func (h *Handler) GetAssistant(c *gin.Context) {
	id := c.Param("id")

	a, err := h.AssistantSvc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, assistant.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40403, "assistant not found")
		default:
			log.Printf("assistant get failed id=%s err=%v", id, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to fetch assistant")
		}
		return
	}

	common.OK(c, gin.H{"assistant": a})
}

func (h *Handler) ListAssistants(c *gin.Context) {
	out, err := h.AssistantSvc.List(c.Request.Context())
	if err != nil {
		log.Printf("assistant list failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list assistants")
		return
	}
	common.OK(c, gin.H{"assistants": out})
}
