package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"yamdb/services"
)

// AuthController serves signup and token exchange. Both routes are public.
type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// RegisterRoutes sets up the auth routes for a go-restful WebService.
func (ctl *AuthController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/v1/auth").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"auth"}

	ws.Route(ws.POST("/signup").To(ctl.signupHandler).
		Doc("Register a username and email and receive a confirmation code by email").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.SignupInput{}).
		Returns(http.StatusOK, "Confirmation code sent", services.SignupResponse{}).
		Returns(http.StatusBadRequest, "Invalid username or email", ErrorResponse{}))

	ws.Route(ws.POST("/token").To(ctl.tokenHandler).
		Doc("Exchange a confirmation code for an access token").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.TokenInput{}).
		Returns(http.StatusOK, "Access token", services.TokenResponse{}).
		Returns(http.StatusBadRequest, "Missing fields or invalid confirmation code", ErrorResponse{}))
}

// signupHandler (Handles POST /v1/auth/signup)
func (ctl *AuthController) signupHandler(request *restful.Request, response *restful.Response) {
	input := new(services.SignupInput)
	if !readEntity(request, response, input) {
		return
	}
	resp, err := ctl.authService.Signup(request.Request.Context(), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, resp)
}

// tokenHandler (Handles POST /v1/auth/token)
func (ctl *AuthController) tokenHandler(request *restful.Request, response *restful.Response) {
	input := new(services.TokenInput)
	if !readEntity(request, response, input) {
		return
	}
	resp, err := ctl.authService.Token(request.Request.Context(), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, resp)
}
