package controllers

import (
	"net/http"
	"strconv"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/repositories"
	"yamdb/services"
)

// TitleResponse is the read model returned by every title route, writes included.
type TitleResponse struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Rating      *float64       `json:"rating"`
	Description string         `json:"description"`
	Genre       []SlugResponse `json:"genre"`
	Category    *SlugResponse  `json:"category"`
}

type TitlePage struct {
	PageMeta
	Results []TitleResponse `json:"results"`
}

func mapModelToTitleResponse(title *models.Title) TitleResponse {
	resp := TitleResponse{
		ID:          title.ID,
		Name:        title.Name,
		Year:        title.Year,
		Rating:      title.Rating,
		Description: title.Description,
		Genre:       make([]SlugResponse, len(title.Genres)),
	}
	for i := range title.Genres {
		resp.Genre[i] = mapSlugModel(&title.Genres[i])
	}
	if title.Category != nil {
		category := mapSlugModel(title.Category)
		resp.Category = &category
	}
	return resp
}

type TitleController struct {
	titleService services.TitleService
	users        auth.UserFinder
}

func NewTitleController(titleService services.TitleService, users auth.UserFinder) *TitleController {
	return &TitleController{titleService: titleService, users: users}
}

// RegisterRoutes sets the /v1/titles root on ws. Reviews and comments are
// registered on the same WebService.
func (ctl *TitleController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/v1/titles").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Filter(auth.OptionalAuthFilter(ctl.users))
	tags := []string{"titles"}
	titleID := ws.PathParameter("title_id", "Identifier of the title").DataType("integer")

	ws.Route(ws.GET("").To(ctl.listTitlesHandler).
		Doc("List titles").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("category", "Category slug").DataType("string")).
		Param(ws.QueryParameter("genre", "Genre slug").DataType("string")).
		Param(ws.QueryParameter("name", "Name substring").DataType("string")).
		Param(ws.QueryParameter("year", "Release year").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TitlePage{}).
		Returns(http.StatusOK, "OK", TitlePage{}).
		Returns(http.StatusNotFound, "Invalid page", ErrorResponse{}))

	ws.Route(ws.POST("").To(ctl.createTitleHandler).
		Doc("Create a title; category and genres are given by slug").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.TitleInput{}).
		Returns(http.StatusCreated, "Created", TitleResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or unknown slug", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}))

	ws.Route(ws.GET("/{title_id}").To(ctl.getTitleHandler).
		Doc("Get a title with its rating").
		Param(titleID).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TitleResponse{}).
		Returns(http.StatusOK, "OK", TitleResponse{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{title_id}").To(ctl.updateTitleHandler).
		Doc("Replace a title").
		Param(titleID).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.TitleInput{}).
		Returns(http.StatusOK, "Updated", TitleResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or unknown slug", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{title_id}").To(ctl.patchTitleHandler).
		Doc("Update a title").
		Param(titleID).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.TitlePatchInput{}).
		Returns(http.StatusOK, "Updated", TitleResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or unknown slug", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{title_id}").To(ctl.deleteTitleHandler).
		Doc("Delete a title with its reviews and comments").
		Param(titleID).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))
}

func (ctl *TitleController) listTitlesHandler(request *restful.Request, response *restful.Response) {
	page, ok := requestedPage(request, response)
	if !ok {
		return
	}

	filter := repositories.TitleFilter{
		Category: request.QueryParameter("category"),
		Genre:    request.QueryParameter("genre"),
		Name:     request.QueryParameter("name"),
	}
	if raw := request.QueryParameter("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			_ = response.WriteHeaderAndJson(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid input.",
				Errors:  map[string][]string{"year": {"Enter a whole number."}},
			}, restful.MIME_JSON)
			return
		}
		filter.Year = year
	}

	titles, total, err := ctl.titleService.ListTitles(request.Request.Context(), filter, page)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	meta, ok := pageMeta(request, response, page, total)
	if !ok {
		return
	}
	results := make([]TitleResponse, len(titles))
	for i := range titles {
		results[i] = mapModelToTitleResponse(&titles[i])
	}
	writeJSON(response, http.StatusOK, TitlePage{PageMeta: meta, Results: results})
}

func (ctl *TitleController) getTitleHandler(request *restful.Request, response *restful.Response) {
	id, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	title, err := ctl.titleService.GetTitle(request.Request.Context(), id)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToTitleResponse(title))
}

func (ctl *TitleController) createTitleHandler(request *restful.Request, response *restful.Response) {
	input := new(services.TitleInput)
	if !readEntity(request, response, input) {
		return
	}
	title, err := ctl.titleService.CreateTitle(request.Request.Context(), auth.CurrentUser(request), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusCreated, mapModelToTitleResponse(title))
}

func (ctl *TitleController) updateTitleHandler(request *restful.Request, response *restful.Response) {
	id, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	input := new(services.TitleInput)
	if !readEntity(request, response, input) {
		return
	}
	title, err := ctl.titleService.UpdateTitle(request.Request.Context(), auth.CurrentUser(request), id, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToTitleResponse(title))
}

func (ctl *TitleController) patchTitleHandler(request *restful.Request, response *restful.Response) {
	id, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	input := new(services.TitlePatchInput)
	if !readEntity(request, response, input) {
		return
	}
	title, err := ctl.titleService.PatchTitle(request.Request.Context(), auth.CurrentUser(request), id, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToTitleResponse(title))
}

func (ctl *TitleController) deleteTitleHandler(request *restful.Request, response *restful.Response) {
	id, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	if err := ctl.titleService.DeleteTitle(request.Request.Context(), auth.CurrentUser(request), id); err != nil {
		handleServiceError(request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}
