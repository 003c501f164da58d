package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/internal/models"
	"dashboard/internal/services"
)

// GroupHandler handles group administration. Permission rows are edited
// inline with their group.
type GroupHandler struct {
	groupService services.GroupServicer
	auditService services.AuditServicer
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService services.GroupServicer, auditService services.AuditServicer) *GroupHandler {
	return &GroupHandler{groupService: groupService, auditService: auditService}
}

// CreateGroupRequest represents the request payload for creating a group.
type CreateGroupRequest struct {
	Name          string   `json:"name" binding:"required,min=1,max=150"`
	PermissionIDs []string `json:"permission_ids" binding:"omitempty,dive,uuid"`
}

// GroupPermissionRowRequest is one inline permission row. Rows without an
// id are added; rows with delete set are removed.
type GroupPermissionRowRequest struct {
	ID           string `json:"id" binding:"omitempty,uuid"`
	PermissionID string `json:"permission_id" binding:"omitempty,uuid"`
	Delete       bool   `json:"delete"`
}

// UpdateGroupRequest represents the request payload for editing a group.
type UpdateGroupRequest struct {
	Name        *string                     `json:"name" binding:"omitempty,min=1,max=150"`
	Permissions []GroupPermissionRowRequest `json:"permissions" binding:"omitempty,dive"`
}

// GroupListQuery holds the list filters of the group endpoint.
type GroupListQuery struct {
	Search string `form:"search" binding:"max=150"`
}

// GroupResponse is the single group envelope.
type GroupResponse struct {
	Group models.Group `json:"group"`
}

// ListGroups lists groups with their permissions.
// @Summary     List groups
// @Tags        admin-group
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Param       search    query string false "Name contains"
// @Success     200 {object} pagination.PageResponse[models.Group]
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /admin/groups [get]
func (h *GroupHandler) ListGroups(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q GroupListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.groupService.ListGroups(q.Search, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateGroup creates a group with an initial permission set.
// @Summary     Create a group
// @Tags        admin-group
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGroupRequest true "Group details"
// @Success     201 {object} GroupResponse "Group created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Permission not found"
// @Failure     409 {object} ErrorResponse "Name taken"
// @Router      /admin/groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	group, formsets, err := h.groupService.CreateGroup(req.Name, req.PermissionIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogAddition(actorID, group,
		h.auditService.ConstructChangeMessage(actorID, nil, models.GroupLabels, formsets, true))

	c.JSON(http.StatusCreated, GroupResponse{Group: *group})
}

// GetGroup returns a group with its permissions.
// @Summary     Get a group
// @Tags        admin-group
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} GroupResponse
// @Failure     404 {object} ErrorResponse "Group not found"
// @Router      /admin/groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.GetGroupByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, GroupResponse{Group: *group})
}

// UpdateGroup renames a group and edits its permission rows. Changed rows
// get their own change entries ahead of the group's.
// @Summary     Update a group
// @Tags        admin-group
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Group ID"
// @Param       request body UpdateGroupRequest true "Group changes"
// @Success     200 {object} GroupResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Group or permission not found"
// @Failure     409 {object} ErrorResponse "Name taken"
// @Router      /admin/groups/{id} [put]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	rows := make([]services.GroupPermissionRow, len(req.Permissions))
	for i, r := range req.Permissions {
		rows[i] = services.GroupPermissionRow{ID: r.ID, PermissionID: r.PermissionID, Delete: r.Delete}
	}

	group, form, formsets, err := h.groupService.UpdateGroup(id, req.Name, rows)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogChange(actorID, group,
		h.auditService.ConstructChangeMessage(actorID, form, models.GroupLabels, formsets, false))

	c.JSON(http.StatusOK, GroupResponse{Group: *group})
}

// DeleteGroup deletes a group and its permission rows.
// @Summary     Delete a group
// @Tags        admin-group
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Group not found"
// @Router      /admin/groups/{id} [delete]
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.DeleteGroup(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogDeletion(actorID, group)
	c.Status(http.StatusNoContent)
}
