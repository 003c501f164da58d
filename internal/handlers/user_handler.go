package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/models"
	"dashboard/internal/pagination"
	"dashboard/internal/services"
)

// UserHandler serves the user resource on the app, admin and external
// surfaces. App and external routes only see active users.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// CreateUserRequest represents the request payload for creating a user.
type CreateUserRequest struct {
	Username    string  `json:"username" binding:"required,username"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	Password    string  `json:"password" binding:"required,min=8,max=128"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// UpdateUserRequest represents the request payload for updating a user.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,username"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	Password    *string `json:"password" binding:"omitempty,min=8,max=128"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// AdminCreateUserRequest adds group membership to CreateUserRequest.
type AdminCreateUserRequest struct {
	CreateUserRequest
	Groups []string `json:"groups" binding:"omitempty,dive,uuid"`
}

// AdminUpdateUserRequest adds group membership to UpdateUserRequest. A
// present groups list replaces the membership; an empty list clears it.
type AdminUpdateUserRequest struct {
	UpdateUserRequest
	Groups *[]string `json:"groups" binding:"omitempty,dive,uuid"`
}

// userRequest is a bound user payload.
type userRequest interface {
	fields() services.UserFields
}

// UserListQuery holds the list filters of the user endpoints.
type UserListQuery struct {
	Search string `form:"search" binding:"max=150"`
}

// UserResponse is the single user envelope.
type UserResponse struct {
	User models.User `json:"user"`
}

// ExternalUser is the reduced user representation served to external
// integrations.
type ExternalUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ExternalUserResponse is the single external user envelope.
type ExternalUserResponse struct {
	User ExternalUser `json:"user"`
}

func (r CreateUserRequest) fields() services.UserFields {
	return services.UserFields{
		Username:    &r.Username,
		Email:       r.Email,
		Password:    &r.Password,
		IsActive:    r.IsActive,
		IsStaff:     r.IsStaff,
		IsSuperuser: r.IsSuperuser,
	}
}

func (r UpdateUserRequest) fields() services.UserFields {
	return services.UserFields{
		Username:    r.Username,
		Email:       r.Email,
		Password:    r.Password,
		IsActive:    r.IsActive,
		IsStaff:     r.IsStaff,
		IsSuperuser: r.IsSuperuser,
	}
}

func (r AdminCreateUserRequest) fields() services.UserFields {
	f := r.CreateUserRequest.fields()
	if r.Groups != nil {
		f.GroupIDs = &r.Groups
	}
	return f
}

func (r AdminUpdateUserRequest) fields() services.UserFields {
	f := r.UpdateUserRequest.fields()
	f.GroupIDs = r.Groups
	return f
}

func toExternalUser(u *models.User) ExternalUser {
	return ExternalUser{ID: u.ID, Username: u.Username, RegisteredAt: u.RegisteredAt}
}

// --- app surface ---

// ListUsers lists active users.
// @Summary     List users
// @Tags        app-user
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Param       search    query string false "Username or email contains"
// @Success     200 {object} pagination.PageResponse[models.User]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/app/api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.list(c, false)
}

// CreateUser creates a user.
// @Summary     Create a user
// @Tags        app-user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateUserRequest true "User details"
// @Success     201 {object} UserResponse "User created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Username or email taken"
// @Router      /user/app/api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	h.create(c, &CreateUserRequest{})
}

// GetUser returns an active user.
// @Summary     Get a user
// @Tags        app-user
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/app/api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	h.get(c, false)
}

// UpdateUser updates an active user. PUT and PATCH both apply only the
// fields present in the body.
// @Summary     Update a user
// @Tags        app-user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "User ID"
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Username or email taken"
// @Router      /user/app/api/users/{id} [put]
// @Router      /user/app/api/users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	h.update(c, &UpdateUserRequest{}, false)
}

// DeleteUser deletes an active user.
// @Summary     Delete a user
// @Tags        app-user
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/app/api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	h.delete(c, false)
}

// ToggleActive flips the active flag of a user.
// @Summary     Toggle user activation
// @Tags        app-user
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} UserResponse
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/app/api/users/{id}/toggle_active [post]
func (h *UserHandler) ToggleActive(c *gin.Context) {
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

	user, form, err := h.userService.ToggleActive(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogChange(actorID, user,
		h.auditService.ConstructChangeMessage(actorID, form, models.UserLabels, nil, false))

	c.JSON(http.StatusOK, UserResponse{User: *user})
}

// GetStats returns user totals.
// @Summary     User statistics
// @Tags        app-user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.UserStats
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/app/api/users/stats [get]
func (h *UserHandler) GetStats(c *gin.Context) {
	stats, err := h.userService.GetStats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- admin surface ---

// AdminListUsers lists all users, inactive included.
// @Summary     List users (admin)
// @Tags        admin-user
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Param       search    query string false "Username or email contains"
// @Success     200 {object} pagination.PageResponse[models.User]
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /user/admin/users [get]
func (h *UserHandler) AdminListUsers(c *gin.Context) {
	h.list(c, true)
}

// AdminCreateUser creates a user, staff flags and groups included.
// @Summary     Create a user (admin)
// @Tags        admin-user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AdminCreateUserRequest true "User details"
// @Success     201 {object} UserResponse "User created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Username or email taken"
// @Router      /user/admin/users [post]
func (h *UserHandler) AdminCreateUser(c *gin.Context) {
	h.create(c, &AdminCreateUserRequest{})
}

// AdminGetUser returns any user.
// @Summary     Get a user (admin)
// @Tags        admin-user
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} UserResponse
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/admin/users/{id} [get]
func (h *UserHandler) AdminGetUser(c *gin.Context) {
	h.get(c, true)
}

// AdminUpdateUser updates any user, group membership included.
// @Summary     Update a user (admin)
// @Tags        admin-user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "User ID"
// @Param       request body AdminUpdateUserRequest true "Fields to change"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User or group not found"
// @Router      /user/admin/users/{id} [put]
// @Router      /user/admin/users/{id} [patch]
func (h *UserHandler) AdminUpdateUser(c *gin.Context) {
	h.update(c, &AdminUpdateUserRequest{}, true)
}

// AdminDeleteUser deletes any user.
// @Summary     Delete a user (admin)
// @Tags        admin-user
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/admin/users/{id} [delete]
func (h *UserHandler) AdminDeleteUser(c *gin.Context) {
	h.delete(c, true)
}

// ForceDeactivate marks a user inactive and stamps the deactivation time.
// @Summary     Force deactivate a user
// @Tags        admin-user
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} UserResponse
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/admin/users/{id}/force_deactivate [post]
func (h *UserHandler) ForceDeactivate(c *gin.Context) {
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

	user, form, err := h.userService.ForceDeactivate(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogChange(actorID, user,
		h.auditService.ConstructChangeMessage(actorID, form, models.UserLabels, nil, false))

	c.JSON(http.StatusOK, UserResponse{User: *user})
}

// GetSystemStats returns user totals with registration counts.
// @Summary     System statistics
// @Tags        admin-user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.SystemStats
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /user/admin/users/system_stats [get]
func (h *UserHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.userService.GetSystemStats(time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- external surface ---

// ExternalListUsers lists active users with reduced fields.
// @Summary     List users (external)
// @Tags        external-user
// @Produce     json
// @Security    ApiKeyAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Items per page"
// @Success     200 {object} pagination.PageResponse[ExternalUser]
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /user/external/api/users [get]
func (h *UserHandler) ExternalListUsers(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.userService.ListUsers(services.UserFilter{}, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	users := make([]ExternalUser, len(result.Data))
	for i := range result.Data {
		users[i] = toExternalUser(&result.Data[i])
	}
	c.JSON(http.StatusOK, pagination.NewPageResponse(users, result.Page, result.PageSize, result.TotalItems))
}

// ExternalGetUser returns an active user with reduced fields.
// @Summary     Get a user (external)
// @Tags        external-user
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "User ID"
// @Success     200 {object} ExternalUserResponse
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/external/api/users/{id} [get]
func (h *UserHandler) ExternalGetUser(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(id, false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExternalUserResponse{User: toExternalUser(user)})
}

// --- shared ---

func (h *UserHandler) list(c *gin.Context, includeInactive bool) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.userService.ListUsers(services.UserFilter{
		IncludeInactive: includeInactive,
		Search:          q.Search,
	}, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) create(c *gin.Context, req userRequest) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.CreateUser(req.fields())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogAddition(actorID, user,
		h.auditService.ConstructChangeMessage(actorID, nil, models.UserLabels, nil, true))

	c.JSON(http.StatusCreated, UserResponse{User: *user})
}

func (h *UserHandler) get(c *gin.Context, includeInactive bool) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(id, includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{User: *user})
}

func (h *UserHandler) update(c *gin.Context, req userRequest, includeInactive bool) {
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

	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, form, err := h.userService.UpdateUser(id, req.fields(), includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogChange(actorID, user,
		h.auditService.ConstructChangeMessage(actorID, form, models.UserLabels, nil, false))

	c.JSON(http.StatusOK, UserResponse{User: *user})
}

func (h *UserHandler) delete(c *gin.Context, includeInactive bool) {
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

	user, err := h.userService.DeleteUser(id, includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogDeletion(actorID, user)
	c.Status(http.StatusNoContent)
}
