package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/services"
)

var (
	loadCreateMessages = response.Messages{
		http.StatusBadRequest:          services.MissingAttributes,
		http.StatusInternalServerError: "Something went wrong creating the load. Please try again",
	}
	loadMissingMessages = response.Messages{
		http.StatusNotFound: "No load with this load_id exists",
	}
)

type LoadHandler struct {
	loads services.LoadService
}

func NewLoadHandler(loads services.LoadService) *LoadHandler {
	return &LoadHandler{loads: loads}
}

type createLoadRequest struct {
	Volume       *float64 `json:"volume"`
	Item         *string  `json:"item"`
	CreationDate *string  `json:"creation_date"`
}

type loadListResponse struct {
	Loads []*domain.Load `json:"loads"`
	Next  string         `json:"next,omitempty"`
}

// POST /loads
func (h *LoadHandler) CreateLoad(c *gin.Context) {
	var req createLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.MissingAttributes)
		return
	}
	in := services.LoadInput{Volume: req.Volume, Item: req.Item, CreationDate: req.CreationDate}
	l, err := h.loads.Create(c.Request.Context(), in, collectionURL(c, loadsPath)+"/")
	if err != nil {
		response.RespondDomainError(c, err, loadCreateMessages)
		return
	}
	response.RespondCreated(c, l)
}

// GET /loads?cursor=
func (h *LoadHandler) ListLoads(c *gin.Context) {
	page, err := h.loads.ListPage(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		response.RespondDomainError(c, err, nil)
		return
	}
	response.RespondOK(c, loadListResponse{
		Loads: page.Items,
		Next:  nextURL(c, loadsPath, page.NextCursor),
	})
}

// GET /loads/:load_id
func (h *LoadHandler) GetLoad(c *gin.Context) {
	l, err := h.loads.GetByID(c.Request.Context(), c.Param("load_id"))
	if err != nil {
		response.RespondDomainError(c, err, loadMissingMessages)
		return
	}
	response.RespondOK(c, l)
}

// DELETE /loads/:load_id
func (h *LoadHandler) DeleteLoad(c *gin.Context) {
	if err := h.loads.Delete(c.Request.Context(), c.Param("load_id")); err != nil {
		response.RespondDomainError(c, err, loadMissingMessages)
		return
	}
	response.RespondNoContent(c)
}
