package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/repositories"
	"yamdb/services"
)

// SlugResponse is the representation of a category or genre. The id stays internal.
type SlugResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type SlugPage struct {
	PageMeta
	Results []SlugResponse `json:"results"`
}

func mapSlugModel[T repositories.SlugModel](item *T) SlugResponse {
	fields := models.Category(*item)
	return SlugResponse{Name: fields.Name, Slug: fields.Slug}
}

// CatalogController serves the category or the genre collection.
type CatalogController[T repositories.SlugModel] struct {
	path    string
	tag     string
	service services.CatalogService[T]
	users   auth.UserFinder
}

func NewCategoryController(service services.CatalogService[models.Category], users auth.UserFinder) *CatalogController[models.Category] {
	return &CatalogController[models.Category]{path: "/v1/categories", tag: "categories", service: service, users: users}
}

func NewGenreController(service services.CatalogService[models.Genre], users auth.UserFinder) *CatalogController[models.Genre] {
	return &CatalogController[models.Genre]{path: "/v1/genres", tag: "genres", service: service, users: users}
}

func (ctl *CatalogController[T]) RegisterRoutes(ws *restful.WebService) {
	ws.Path(ctl.path).Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Filter(auth.OptionalAuthFilter(ctl.users))
	tags := []string{ctl.tag}
	slug := ws.PathParameter("slug", "Slug of the entry").DataType("string")

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List "+ctl.tag).
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("search", "Name substring").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(SlugPage{}).
		Returns(http.StatusOK, "OK", SlugPage{}).
		Returns(http.StatusNotFound, "Invalid page", ErrorResponse{}))

	ws.Route(ws.POST("").To(ctl.createHandler).
		Doc("Create an entry").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.SlugInput{}).
		Returns(http.StatusCreated, "Created", SlugResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or slug taken", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}))

	ws.Route(ws.PATCH("/{slug}").To(ctl.patchHandler).
		Doc("Update an entry").
		Param(slug).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.SlugPatchInput{}).
		Returns(http.StatusOK, "Updated", SlugResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or slug taken", ErrorResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{slug}").To(ctl.deleteHandler).
		Doc("Delete an entry; titles referencing it are kept").
		Param(slug).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Forbidden", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	// Entries are only listed, never retrieved or replaced one by one.
	ws.Route(ws.GET("/{slug}").To(methodNotAllowed).Operation("get"+ctl.tag+"NotAllowed").
		Param(slug).Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusMethodNotAllowed, "Method not allowed", ErrorResponse{}))
	ws.Route(ws.PUT("/{slug}").To(methodNotAllowed).Operation("replace"+ctl.tag+"NotAllowed").
		Param(slug).Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusMethodNotAllowed, "Method not allowed", ErrorResponse{}))
}

func (ctl *CatalogController[T]) listHandler(request *restful.Request, response *restful.Response) {
	page, ok := requestedPage(request, response)
	if !ok {
		return
	}
	items, total, err := ctl.service.List(request.Request.Context(), request.QueryParameter("search"), page)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	meta, ok := pageMeta(request, response, page, total)
	if !ok {
		return
	}
	results := make([]SlugResponse, len(items))
	for i := range items {
		results[i] = mapSlugModel(&items[i])
	}
	writeJSON(response, http.StatusOK, SlugPage{PageMeta: meta, Results: results})
}

func (ctl *CatalogController[T]) createHandler(request *restful.Request, response *restful.Response) {
	input := new(services.SlugInput)
	if !readEntity(request, response, input) {
		return
	}
	item, err := ctl.service.Create(request.Request.Context(), auth.CurrentUser(request), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusCreated, mapSlugModel(item))
}

func (ctl *CatalogController[T]) patchHandler(request *restful.Request, response *restful.Response) {
	input := new(services.SlugPatchInput)
	if !readEntity(request, response, input) {
		return
	}
	item, err := ctl.service.Patch(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("slug"), input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapSlugModel(item))
}

func (ctl *CatalogController[T]) deleteHandler(request *restful.Request, response *restful.Response) {
	if err := ctl.service.Delete(request.Request.Context(), auth.CurrentUser(request), request.PathParameter("slug")); err != nil {
		handleServiceError(request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}
