package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// routePlannerStatus handles GET /v4/routeplanner/status: 204 when
// nothing is banned, the RotatingIpRoutePlanner-shaped body otherwise.
func (h *handlers) routePlannerStatus(c *gin.Context) {
	status := h.d.RoutePlanner.GetStatus()
	if status.Class == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, status)
}

type freeAddressPayload struct {
	Address string `json:"address"`
}

// routePlannerFreeAddress handles POST /v4/routeplanner/free/address.
func (h *handlers) routePlannerFreeAddress(c *gin.Context) {
	var body freeAddressPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	h.d.RoutePlanner.UnmarkAddress(body.Address)
	c.Status(http.StatusNoContent)
}

// routePlannerFreeAll handles POST /v4/routeplanner/free/all.
func (h *handlers) routePlannerFreeAll(c *gin.Context) {
	h.d.RoutePlanner.UnmarkAllAddresses()
	c.Status(http.StatusNoContent)
}
