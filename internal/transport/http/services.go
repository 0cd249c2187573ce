package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/catalog"
)

type ServiceHandler struct {
	catalog *catalog.Reader
}

func NewServiceHandler(cat *catalog.Reader) *ServiceHandler {
	return &ServiceHandler{catalog: cat}
}

// GET /v1/services
func (h *ServiceHandler) List(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GET /v1/services/categories
func (h *ServiceHandler) Categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// POST /v1/services (provider only)
func (h *ServiceHandler) Create(c *gin.Context) {
	var in struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description" binding:"required"`
		Price       float64  `json:"price" binding:"required,gt=0"`
		Location    string   `json:"location"`
		CategoryID  string   `json:"category_id"`
		Images      []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and description must not be empty"})
		return
	}
	actor := currentActor(c)
	err := h.catalog.Create(c.Request.Context(), catalog.CreateServiceInput{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		CategoryID:  in.CategoryID,
		Images:      in.Images,
		ProviderID:  actor.ID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"services": h.catalog.Services()})
}

// updatableServiceFields is the subset of service fields a provider may
// change after creation.
var updatableServiceFields = map[string]struct{}{
	"title": {}, "description": {}, "price": {}, "location": {},
	"is_available": {}, "images": {}, "category_id": {},
}

// PATCH /v1/services/:id (provider only, own services)
func (h *ServiceHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields := make(map[string]any, len(in))
	for k, v := range in {
		if _, ok := updatableServiceFields[k]; ok {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields"})
		return
	}

	actor := currentActor(c)
	svc, err := h.catalog.Fetch(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if svc.ProviderID != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "service belongs to another provider"})
		return
	}

	if err := h.catalog.Update(c.Request.Context(), id, fields); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": h.catalog.Services()})
}
