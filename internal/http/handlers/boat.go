package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/services"
)

var (
	boatCreateMessages = response.Messages{
		http.StatusBadRequest:          services.MissingAttributes,
		http.StatusInternalServerError: "Something went wrong creating the boat. Please try again",
	}
	boatMissingMessages = response.Messages{
		http.StatusNotFound: "No boat with this boat_id exists",
	}
	assignMessages = response.Messages{
		http.StatusNotFound:  "The specified boat and/or load does not exist",
		http.StatusForbidden: "The load is already loaded on another boat",
	}
	unassignMessages = response.Messages{
		http.StatusNotFound: "No boat with this boat_id is loaded with the load with this load_id",
	}
)

type BoatHandler struct {
	boats services.BoatService
}

func NewBoatHandler(boats services.BoatService) *BoatHandler {
	return &BoatHandler{boats: boats}
}

type createBoatRequest struct {
	Name   *string  `json:"name"`
	Type   *string  `json:"type"`
	Length *float64 `json:"length"`
}

type boatListResponse struct {
	Boats []*domain.Boat `json:"boats"`
	Next  string         `json:"next,omitempty"`
}

type boatLoadsResponse struct {
	Loads []*domain.Load `json:"loads"`
}

// POST /boats
func (h *BoatHandler) CreateBoat(c *gin.Context) {
	var req createBoatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.MissingAttributes)
		return
	}
	in := services.BoatInput{Name: req.Name, Type: req.Type, Length: req.Length}
	b, err := h.boats.Create(c.Request.Context(), in, collectionURL(c, boatsPath)+"/")
	if err != nil {
		response.RespondDomainError(c, err, boatCreateMessages)
		return
	}
	response.RespondCreated(c, b)
}

// GET /boats?cursor=
func (h *BoatHandler) ListBoats(c *gin.Context) {
	page, err := h.boats.ListPage(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		response.RespondDomainError(c, err, nil)
		return
	}
	response.RespondOK(c, boatListResponse{
		Boats: page.Items,
		Next:  nextURL(c, boatsPath, page.NextCursor),
	})
}

// GET /boats/:boat_id
func (h *BoatHandler) GetBoat(c *gin.Context) {
	b, err := h.boats.GetByID(c.Request.Context(), c.Param("boat_id"))
	if err != nil {
		response.RespondDomainError(c, err, boatMissingMessages)
		return
	}
	response.RespondOK(c, b)
}

// DELETE /boats/:boat_id
func (h *BoatHandler) DeleteBoat(c *gin.Context) {
	if err := h.boats.Delete(c.Request.Context(), c.Param("boat_id")); err != nil {
		response.RespondDomainError(c, err, boatMissingMessages)
		return
	}
	response.RespondNoContent(c)
}

// PUT /boats/:boat_id/loads/:load_id
func (h *BoatHandler) AssignLoad(c *gin.Context) {
	if err := h.boats.AssignLoad(c.Request.Context(), c.Param("boat_id"), c.Param("load_id")); err != nil {
		response.RespondDomainError(c, err, assignMessages)
		return
	}
	response.RespondNoContent(c)
}

// DELETE /boats/:boat_id/loads/:load_id
func (h *BoatHandler) UnassignLoad(c *gin.Context) {
	if err := h.boats.UnassignLoad(c.Request.Context(), c.Param("boat_id"), c.Param("load_id")); err != nil {
		response.RespondDomainError(c, err, unassignMessages)
		return
	}
	response.RespondNoContent(c)
}

// GET /boats/:boat_id/loads
func (h *BoatHandler) ListBoatLoads(c *gin.Context) {
	loads, err := h.boats.ListLoads(c.Request.Context(), c.Param("boat_id"))
	if err != nil {
		response.RespondDomainError(c, err, boatMissingMessages)
		return
	}
	response.RespondOK(c, boatLoadsResponse{Loads: loads})
}
