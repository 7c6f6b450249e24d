// README: HTTP handlers for inspecting ride groups.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hubpool/internal/modules/ride"
	"hubpool/internal/types"
)

type GroupHandler struct {
	svc *ride.Service
}

func NewGroupHandler(svc *ride.Service) *GroupHandler {
	return &GroupHandler{svc: svc}
}

func (h *GroupHandler) Get(c *gin.Context) {
	id := types.ID(c.Param("id"))
	detail, err := h.svc.GetGroup(c.Request.Context(), id)
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, detail)
}

func (h *GroupHandler) ListForming(c *gin.Context) {
	groups, err := h.svc.ListFormingGroups(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"groups": groups})
}
