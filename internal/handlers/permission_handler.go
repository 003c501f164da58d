package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/internal/models"
	"dashboard/internal/services"
)

// PermissionHandler exposes the permission catalog read-only.
type PermissionHandler struct {
	permissionService services.PermissionServicer
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(permissionService services.PermissionServicer) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// PermissionListQuery holds the list filters of the permission endpoint.
type PermissionListQuery struct {
	ContentType string `form:"content_type" binding:"max=200"`
	Search      string `form:"search" binding:"max=150"`
}

// PermissionResponse is the single permission envelope.
type PermissionResponse struct {
	Permission models.Permission `json:"permission"`
}

// ListPermissions lists permissions.
// @Summary     List permissions
// @Tags        admin-group
// @Produce     json
// @Security    BearerAuth
// @Param       page         query int    false "Page number"
// @Param       page_size    query int    false "Items per page"
// @Param       content_type query string false "app_label.model"
// @Param       search       query string false "Name or codename contains"
// @Success     200 {object} pagination.PageResponse[models.Permission]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /admin/permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q PermissionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.permissionService.ListPermissions(q.ContentType, q.Search, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPermission returns a permission with its content type.
// @Summary     Get a permission
// @Tags        admin-group
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Permission ID"
// @Success     200 {object} PermissionResponse
// @Failure     404 {object} ErrorResponse "Permission not found"
// @Router      /admin/permissions/{id} [get]
func (h *PermissionHandler) GetPermission(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	perm, err := h.permissionService.GetPermissionByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, PermissionResponse{Permission: *perm})
}
