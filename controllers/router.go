package controllers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yamdb/auth"
	"yamdb/mail"
	"yamdb/repositories"
	"yamdb/services"
)

// Deps is everything the HTTP API needs to serve requests.
type Deps struct {
	DB       *gorm.DB
	Mailer   mail.Sender
	Policies auth.Policies
	Auth     services.AuthOptions
	Logger   *zap.Logger
}

// NewContainer wires repositories, services and controllers into a go-restful container.
func NewContainer(deps Deps) *restful.Container {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	errorLogger = logger

	userRepo := repositories.NewUserRepository(deps.DB)
	categoryRepo := repositories.NewCategoryRepository(deps.DB)
	genreRepo := repositories.NewGenreRepository(deps.DB)
	titleRepo := repositories.NewTitleRepository(deps.DB)
	reviewRepo := repositories.NewReviewRepository(deps.DB)
	commentRepo := repositories.NewCommentRepository(deps.DB)

	authService := services.NewAuthService(userRepo, deps.Mailer, deps.Auth, logger)
	userService := services.NewUserService(userRepo, deps.Policies)
	categoryService := services.NewCategoryService(categoryRepo, deps.Policies)
	genreService := services.NewGenreService(genreRepo, deps.Policies)
	titleService := services.NewTitleService(titleRepo, categoryRepo, genreRepo, deps.Policies)
	reviewService := services.NewReviewService(reviewRepo, titleRepo, deps.Policies)
	commentService := services.NewCommentService(commentRepo, reviewService, deps.Policies)

	container := restful.NewContainer()
	container.Router(restful.CurlyRouter{})
	container.Filter(AccessLogFilter(logger))
	container.ServiceErrorHandler(writeServiceError)
	container.DoNotRecover(false)
	container.RecoverHandler(func(panicReason interface{}, w http.ResponseWriter) {
		logger.Error("Recovered from panic", zap.Any("reason", panicReason), zap.Stack("stack"))
		w.Header().Set("Content-Type", restful.MIME_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"An internal error occurred"}`))
	})

	authWS := new(restful.WebService)
	NewAuthController(authService).RegisterRoutes(authWS)
	container.Add(authWS)

	userWS := new(restful.WebService)
	NewUserController(userService, userRepo).RegisterRoutes(userWS)
	container.Add(userWS)

	categoryWS := new(restful.WebService)
	NewCategoryController(categoryService, userRepo).RegisterRoutes(categoryWS)
	container.Add(categoryWS)

	genreWS := new(restful.WebService)
	NewGenreController(genreService, userRepo).RegisterRoutes(genreWS)
	container.Add(genreWS)

	// Reviews and comments live below /v1/titles/{title_id} and share its WebService.
	titleWS := new(restful.WebService)
	NewTitleController(titleService, userRepo).RegisterRoutes(titleWS)
	NewReviewController(reviewService, commentService).RegisterRoutes(titleWS)
	container.Add(titleWS)

	healthWS := new(restful.WebService)
	healthWS.Path("/v1/health").Produces(restful.MIME_JSON)
	healthWS.Route(healthWS.GET("").To(healthHandler(deps.DB)).
		Doc("Report whether the API and its database are reachable").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}))
	container.Add(healthWS)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
	return container
}

// AccessLogFilter logs every request once it has been answered.
func AccessLogFilter(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("client_ip", clientIP(req.Request)),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
		)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeServiceError answers routing failures with the same JSON body as handler errors.
func writeServiceError(serr restful.ServiceError, req *restful.Request, resp *restful.Response) {
	message := serr.Message
	switch serr.Code {
	case http.StatusNotFound:
		message = "Not found."
	case http.StatusMethodNotAllowed:
		message = fmt.Sprintf("Method %q not allowed.", req.Request.Method)
	}
	for name, values := range serr.Header {
		for _, v := range values {
			resp.AddHeader(name, v)
		}
	}
	writeError(resp, serr.Code, message)
}

func healthHandler(db *gorm.DB) restful.RouteFunction {
	return func(request *restful.Request, response *restful.Response) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(request.Request.Context())
		}
		if err != nil {
			errorLogger.Warn("Health check failed", zap.Error(err))
			writeJSON(response, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(response, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "YaMDb API",
			Description: "Reviews and ratings of films, books and music",
			Version:     "1.0.0",
		},
	}
	swo.SecurityDefinitions = spec.SecurityDefinitions{
		"bearer": spec.APIKeyAuth("Authorization", "header"),
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "auth", Description: "Signup and token exchange"}},
		{TagProps: spec.TagProps{Name: "users", Description: "Account management"}},
		{TagProps: spec.TagProps{Name: "categories", Description: "Title categories"}},
		{TagProps: spec.TagProps{Name: "genres", Description: "Title genres"}},
		{TagProps: spec.TagProps{Name: "titles", Description: "Reviewable works"}},
		{TagProps: spec.TagProps{Name: "reviews", Description: "Scored reviews of a title"}},
		{TagProps: spec.TagProps{Name: "comments", Description: "Comments on a review"}},
	}
}
