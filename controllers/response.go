package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"yamdb/auth"
	"yamdb/config"
	"yamdb/repositories"
	"yamdb/services"
)

// errorLogger receives internal errors hidden from clients. NewContainer replaces it.
var errorLogger = zap.NewNop()

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeError(response *restful.Response, status int, message string) {
	_ = response.WriteHeaderAndJson(status, ErrorResponse{Message: message}, restful.MIME_JSON)
}

func writeJSON(response *restful.Response, status int, value interface{}) {
	_ = response.WriteHeaderAndJson(status, value, restful.MIME_JSON)
}

// handleServiceError translates service errors to HTTP responses.
func handleServiceError(request *restful.Request, response *restful.Response, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, ErrorResponse{Message: verr.Message, Errors: verr.Fields}, restful.MIME_JSON)
	case errors.Is(err, auth.ErrNotAuthenticated):
		response.AddHeader("WWW-Authenticate", `Bearer realm="api"`)
		writeError(response, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrPermissionDenied):
		writeError(response, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(response, http.StatusNotFound, err.Error())
	default:
		errorLogger.Error("Unhandled service error",
			zap.String("method", request.Request.Method),
			zap.String("path", request.Request.URL.Path),
			zap.Error(err))
		writeError(response, http.StatusInternalServerError, "An internal error occurred")
	}
}

// readEntity decodes the JSON body into input, answering 400 itself on failure.
func readEntity(request *restful.Request, response *restful.Response, input interface{}) bool {
	if err := request.ReadEntity(input); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID parses a numeric path parameter. Anything else does not name a resource.
func pathID(request *restful.Request, response *restful.Response, name string) (uint, bool) {
	id, err := strconv.ParseUint(request.PathParameter(name), 10, 32)
	if err != nil || id == 0 {
		writeError(response, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return uint(id), true
}

func methodNotAllowed(request *restful.Request, response *restful.Response) {
	writeError(response, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", request.Request.Method))
}

const errInvalidPage = "Invalid page."

// requestedPage reads ?page=N. A missing parameter selects the first page.
func requestedPage(request *restful.Request, response *restful.Response) (repositories.Page, bool) {
	page := repositories.Page{Number: 1, Size: config.AppConfig.Pagination.PageSize}
	if page.Size <= 0 {
		page.Size = 10
	}
	if raw := request.QueryParameter("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(response, http.StatusNotFound, errInvalidPage)
			return page, false
		}
		page.Number = n
	}
	return page, true
}

// PageMeta is the envelope shared by every paginated list.
type PageMeta struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// pageMeta builds the envelope of page. It fails when the page lies past the
// last one, the first page always exists.
func pageMeta(request *restful.Request, response *restful.Response, page repositories.Page, total int64) (PageMeta, bool) {
	if page.Number > 1 && int64(page.Offset()) >= total {
		writeError(response, http.StatusNotFound, errInvalidPage)
		return PageMeta{}, false
	}
	meta := PageMeta{Count: total}
	if int64(page.Offset()+page.Size) < total {
		next := pageURL(request, page.Number+1)
		meta.Next = &next
	}
	if page.Number > 1 {
		prev := pageURL(request, page.Number-1)
		meta.Previous = &prev
	}
	return meta, true
}

func pageURL(request *restful.Request, number int) string {
	r := request.Request
	base := strings.TrimRight(config.AppConfig.BaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	query := r.URL.Query()
	if number == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(number))
	}
	u := url.URL{Path: r.URL.Path, RawQuery: query.Encode()}
	return base + u.String()
}
