package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/services"
)

// UserController serves the user administration and /users/me routes.
type UserController struct {
	userService services.UserService
	users       auth.UserFinder
}

func NewUserController(userService services.UserService, users auth.UserFinder) *UserController {
	return &UserController{userService: userService, users: users}
}

// UserResponse Defines the response structure of user information
type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

type UserPage struct {
	PageMeta
	Results []UserResponse `json:"results"`
}

// --- Helper to map model to response ---
func mapModelToUserResponse(user *models.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
		Role:      string(user.Role),
	}
}

// --- go-restful Route Definitions ---

// RegisterRoutes sets up the user-related routes for a go-restful WebService.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/v1/users").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Filter(auth.OptionalAuthFilter(ctl.users))
	tags := []string{"users"}
	username := ws.PathParameter("username", "Username of the account").DataType("string")

	// /me only needs a valid token, every other route is for administrators.
	ws.Route(ws.GET("/me").Filter(auth.AuthFilter(ctl.users)).To(ctl.meHandler).
		Doc("Get the caller's own account").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "Own account", UserResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.PATCH("/me").Filter(auth.AuthFilter(ctl.users)).To(ctl.updateMeHandler).
		Doc("Update the caller's own account; role changes are ignored for non-administrators").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UserPatchInput{}).
		Returns(http.StatusOK, "Account updated", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.PUT("/me").To(methodNotAllowed).Operation("replaceMeNotAllowed").
		Metadata(restfulspec.KeyOpenAPITags, tags))
	ws.Route(ws.DELETE("/me").To(methodNotAllowed).Operation("deleteMeNotAllowed").
		Metadata(restfulspec.KeyOpenAPITags, tags))

	ws.Route(ws.GET("").To(ctl.listUsersHandler).
		Doc("List users with pagination").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("search", "Username substring").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserPage{}).
		Returns(http.StatusOK, "Users listed successfully", UserPage{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}))

	ws.Route(ws.POST("").To(ctl.createUserHandler).
		Doc("Create a user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UserInput{}).
		Returns(http.StatusCreated, "User created successfully", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body or username/email taken", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}))

	ws.Route(ws.GET("/{username}").To(ctl.getUserHandler).
		Doc("Get user by username").
		Param(username).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "User found", UserResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{username}").To(ctl.updateUserHandler).
		Doc("Replace user by username").
		Param(username).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UserInput{}).
		Returns(http.StatusOK, "User updated successfully", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{username}").To(ctl.patchUserHandler).
		Doc("Update user by username").
		Param(username).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UserPatchInput{}).
		Returns(http.StatusOK, "User updated successfully", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{username}").To(ctl.deleteUserHandler).
		Doc("Delete user by username along with their reviews and comments").
		Param(username).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "User deleted successfully", nil).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))
}

// --- go-restful Handler Functions ---

// meHandler (Handles GET /v1/users/me)
func (ctl *UserController) meHandler(request *restful.Request, response *restful.Response) {
	user, err := ctl.userService.Me(request.Request.Context(), auth.CurrentUser(request))
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToUserResponse(user))
}

// updateMeHandler (Handles PATCH /v1/users/me)
func (ctl *UserController) updateMeHandler(request *restful.Request, response *restful.Response) {
	input := new(services.UserPatchInput)
	if !readEntity(request, response, input) {
		return
	}
	user, err := ctl.userService.UpdateMe(request.Request.Context(), auth.CurrentUser(request), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToUserResponse(user))
}

// listUsersHandler (Handles GET /v1/users)
func (ctl *UserController) listUsersHandler(request *restful.Request, response *restful.Response) {
	page, ok := requestedPage(request, response)
	if !ok {
		return
	}

	users, total, err := ctl.userService.ListUsers(request.Request.Context(), auth.CurrentUser(request), request.QueryParameter("search"), page)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}

	meta, ok := pageMeta(request, response, page, total)
	if !ok {
		return
	}
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = mapModelToUserResponse(&users[i])
	}
	writeJSON(response, http.StatusOK, UserPage{PageMeta: meta, Results: userResponses})
}

// createUserHandler (Handles POST /v1/users)
func (ctl *UserController) createUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.UserInput)
	if !readEntity(request, response, input) {
		return
	}
	user, err := ctl.userService.CreateUser(request.Request.Context(), auth.CurrentUser(request), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusCreated, mapModelToUserResponse(user))
}

// getUserHandler (Handles GET /v1/users/{username})
func (ctl *UserController) getUserHandler(request *restful.Request, response *restful.Response) {
	user, err := ctl.userService.GetUser(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("username"))
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToUserResponse(user))
}

// updateUserHandler (Handles PUT /v1/users/{username})
func (ctl *UserController) updateUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.UserInput)
	if !readEntity(request, response, input) {
		return
	}
	user, err := ctl.userService.UpdateUser(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("username"), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToUserResponse(user))
}

// patchUserHandler (Handles PATCH /v1/users/{username})
func (ctl *UserController) patchUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.UserPatchInput)
	if !readEntity(request, response, input) {
		return
	}
	user, err := ctl.userService.PatchUser(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("username"), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToUserResponse(user))
}

// deleteUserHandler (Handles DELETE /v1/users/{username})
func (ctl *UserController) deleteUserHandler(request *restful.Request, response *restful.Response) {
	err := ctl.userService.DeleteUser(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("username"))
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}
