package controllers

import (
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/services"
)

type ReviewResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

type ReviewPage struct {
	PageMeta
	Results []ReviewResponse `json:"results"`
}

type CommentResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

type CommentPage struct {
	PageMeta
	Results []CommentResponse `json:"results"`
}

func mapModelToReviewResponse(review *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:      review.ID,
		Text:    review.Text,
		Author:  review.Author.Username,
		Score:   review.Score,
		PubDate: review.PubDate,
	}
}

func mapModelToCommentResponse(comment *models.Comment) CommentResponse {
	return CommentResponse{
		ID:      comment.ID,
		Text:    comment.Text,
		Author:  comment.Author.Username,
		PubDate: comment.PubDate,
	}
}

// ReviewController serves reviews and their comments under /v1/titles/{title_id}.
type ReviewController struct {
	reviewService  services.ReviewService
	commentService services.CommentService
}

func NewReviewController(reviewService services.ReviewService, commentService services.CommentService) *ReviewController {
	return &ReviewController{reviewService: reviewService, commentService: commentService}
}

// RegisterRoutes adds the review and comment routes to the titles WebService.
func (ctl *ReviewController) RegisterRoutes(ws *restful.WebService) {
	titleID := ws.PathParameter("title_id", "Identifier of the title").DataType("integer")
	reviewID := ws.PathParameter("review_id", "Identifier of the review").DataType("integer")
	commentID := ws.PathParameter("comment_id", "Identifier of the comment").DataType("integer")
	page := ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")

	reviewTags := []string{"reviews"}
	ws.Route(ws.GET("/{title_id}/reviews").To(ctl.listReviewsHandler).
		Doc("List the reviews of a title").
		Param(titleID).Param(page).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Writes(ReviewPage{}).
		Returns(http.StatusOK, "OK", ReviewPage{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))

	ws.Route(ws.POST("/{title_id}/reviews").To(ctl.createReviewHandler).
		Doc("Review a title; each user reviews a title once").
		Param(titleID).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Reads(services.ReviewInput{}).
		Returns(http.StatusCreated, "Created", ReviewResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or already reviewed", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title not found", ErrorResponse{}))

	ws.Route(ws.GET("/{title_id}/reviews/{review_id}").To(ctl.getReviewHandler).
		Doc("Get a review").
		Param(titleID).Param(reviewID).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Writes(ReviewResponse{}).
		Returns(http.StatusOK, "OK", ReviewResponse{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{title_id}/reviews/{review_id}").To(ctl.updateReviewHandler).
		Doc("Replace a review").
		Param(titleID).Param(reviewID).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Reads(services.ReviewInput{}).
		Returns(http.StatusOK, "Updated", ReviewResponse{}).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{title_id}/reviews/{review_id}").To(ctl.patchReviewHandler).
		Doc("Update a review").
		Param(titleID).Param(reviewID).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Reads(services.ReviewPatchInput{}).
		Returns(http.StatusOK, "Updated", ReviewResponse{}).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{title_id}/reviews/{review_id}").To(ctl.deleteReviewHandler).
		Doc("Delete a review with its comments").
		Param(titleID).Param(reviewID).
		Metadata(restfulspec.KeyOpenAPITags, reviewTags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	commentTags := []string{"comments"}
	ws.Route(ws.GET("/{title_id}/reviews/{review_id}/comments").To(ctl.listCommentsHandler).
		Doc("List the comments of a review").
		Param(titleID).Param(reviewID).Param(page).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Writes(CommentPage{}).
		Returns(http.StatusOK, "OK", CommentPage{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	ws.Route(ws.POST("/{title_id}/reviews/{review_id}/comments").To(ctl.createCommentHandler).
		Doc("Comment on a review").
		Param(titleID).Param(reviewID).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Reads(services.CommentInput{}).
		Returns(http.StatusCreated, "Created", CommentResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Title or review not found", ErrorResponse{}))

	ws.Route(ws.GET("/{title_id}/reviews/{review_id}/comments/{comment_id}").To(ctl.getCommentHandler).
		Doc("Get a comment").
		Param(titleID).Param(reviewID).Param(commentID).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Writes(CommentResponse{}).
		Returns(http.StatusOK, "OK", CommentResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{title_id}/reviews/{review_id}/comments/{comment_id}").To(ctl.updateCommentHandler).
		Doc("Replace a comment").
		Param(titleID).Param(reviewID).Param(commentID).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Reads(services.CommentInput{}).
		Returns(http.StatusOK, "Updated", CommentResponse{}).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{title_id}/reviews/{review_id}/comments/{comment_id}").To(ctl.patchCommentHandler).
		Doc("Update a comment").
		Param(titleID).Param(reviewID).Param(commentID).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Reads(services.CommentPatchInput{}).
		Returns(http.StatusOK, "Updated", CommentResponse{}).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{title_id}/reviews/{review_id}/comments/{comment_id}").To(ctl.deleteCommentHandler).
		Doc("Delete a comment").
		Param(titleID).Param(reviewID).Param(commentID).
		Metadata(restfulspec.KeyOpenAPITags, commentTags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Not the author", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))
}

// reviewPath resolves {title_id} and {review_id}.
func reviewPath(request *restful.Request, response *restful.Response) (titleID, reviewID uint, ok bool) {
	if titleID, ok = pathID(request, response, "title_id"); !ok {
		return
	}
	reviewID, ok = pathID(request, response, "review_id")
	return
}

func (ctl *ReviewController) listReviewsHandler(request *restful.Request, response *restful.Response) {
	titleID, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	page, ok := requestedPage(request, response)
	if !ok {
		return
	}
	reviews, total, err := ctl.reviewService.ListReviews(request.Request.Context(), titleID, page)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	meta, ok := pageMeta(request, response, page, total)
	if !ok {
		return
	}
	results := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		results[i] = mapModelToReviewResponse(&reviews[i])
	}
	writeJSON(response, http.StatusOK, ReviewPage{PageMeta: meta, Results: results})
}

func (ctl *ReviewController) createReviewHandler(request *restful.Request, response *restful.Response) {
	titleID, ok := pathID(request, response, "title_id")
	if !ok {
		return
	}
	input := new(services.ReviewInput)
	if !readEntity(request, response, input) {
		return
	}
	review, err := ctl.reviewService.CreateReview(request.Request.Context(), auth.CurrentUser(request), titleID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusCreated, mapModelToReviewResponse(review))
}

func (ctl *ReviewController) getReviewHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	review, err := ctl.reviewService.GetReview(request.Request.Context(), titleID, reviewID)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToReviewResponse(review))
}

func (ctl *ReviewController) updateReviewHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	input := new(services.ReviewInput)
	if !readEntity(request, response, input) {
		return
	}
	review, err := ctl.reviewService.UpdateReview(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToReviewResponse(review))
}

func (ctl *ReviewController) patchReviewHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	input := new(services.ReviewPatchInput)
	if !readEntity(request, response, input) {
		return
	}
	review, err := ctl.reviewService.PatchReview(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToReviewResponse(review))
}

func (ctl *ReviewController) deleteReviewHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	if err := ctl.reviewService.DeleteReview(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID); err != nil {
		handleServiceError(request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}

func (ctl *ReviewController) listCommentsHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	page, ok := requestedPage(request, response)
	if !ok {
		return
	}
	comments, total, err := ctl.commentService.ListComments(request.Request.Context(), titleID, reviewID, page)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	meta, ok := pageMeta(request, response, page, total)
	if !ok {
		return
	}
	results := make([]CommentResponse, len(comments))
	for i := range comments {
		results[i] = mapModelToCommentResponse(&comments[i])
	}
	writeJSON(response, http.StatusOK, CommentPage{PageMeta: meta, Results: results})
}

func (ctl *ReviewController) createCommentHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	input := new(services.CommentInput)
	if !readEntity(request, response, input) {
		return
	}
	comment, err := ctl.commentService.CreateComment(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusCreated, mapModelToCommentResponse(comment))
}

func (ctl *ReviewController) getCommentHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	commentID, ok := pathID(request, response, "comment_id")
	if !ok {
		return
	}
	comment, err := ctl.commentService.GetComment(request.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToCommentResponse(comment))
}

func (ctl *ReviewController) updateCommentHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	commentID, ok := pathID(request, response, "comment_id")
	if !ok {
		return
	}
	input := new(services.CommentInput)
	if !readEntity(request, response, input) {
		return
	}
	comment, err := ctl.commentService.UpdateComment(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, commentID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToCommentResponse(comment))
}

func (ctl *ReviewController) patchCommentHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	commentID, ok := pathID(request, response, "comment_id")
	if !ok {
		return
	}
	input := new(services.CommentPatchInput)
	if !readEntity(request, response, input) {
		return
	}
	comment, err := ctl.commentService.PatchComment(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, commentID, input)
	if err != nil {
		handleServiceError(request, response, err)
		return
	}
	writeJSON(response, http.StatusOK, mapModelToCommentResponse(comment))
}

func (ctl *ReviewController) deleteCommentHandler(request *restful.Request, response *restful.Response) {
	titleID, reviewID, ok := reviewPath(request, response)
	if !ok {
		return
	}
	commentID, ok := pathID(request, response, "comment_id")
	if !ok {
		return
	}
	if err := ctl.commentService.DeleteComment(request.Request.Context(), auth.CurrentUser(request), titleID, reviewID, commentID); err != nil {
		handleServiceError(request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}
