package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/library"
)

// GetUserID extracts the owner of the request from the Gin context.
// Returns auth.DefaultUserID (0) when auth is disabled.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    errors.Code `json:"code,omitempty"`    // machine-readable error code
	Details any         `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: errors.CodeValidation})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: errors.CodeNotFound})
}

// respondInternalError logs the error and sends a 500 response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	slog.Error("Internal error", "context", context, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: errors.CodeInternal})
}

// respondError maps a domain error to its HTTP status. Uncoded errors are
// treated as internal and not exposed.
func respondError(c *gin.Context, err error, context string) {
	var domainErr *errors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == errors.CodeInternal {
		respondInternalError(c, err, context)
		return
	}
	c.JSON(domainErr.HTTPStatus(), ErrorResponse{
		Error:   domainErr.Error(),
		Code:    domainErr.Code,
		Details: domainErr.Details,
	})
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Request Helpers ---

// bindJSON decodes and validates the request body. On failure it responds
// with 400 and returns false.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    errors.CodeValidation,
			Details: fields,
		})
		return false
	}
	respondBadRequest(c, "invalid request body: "+err.Error())
	return false
}

// bookIDParam returns the :id path parameter.
func bookIDParam(c *gin.Context) (string, bool) {
	bookID := c.Param("id")
	if bookID == "" {
		respondBadRequest(c, "invalid id")
		return "", false
	}
	return bookID, true
}

// storeFor resolves the owner's library or responds with the error.
func storeFor(c *gin.Context, libraries LibraryProvider) (*library.Store, bool) {
	store, err := libraries.Store(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, err, "load library")
		return nil, false
	}
	return store, true
}
