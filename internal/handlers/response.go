package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// RegisterValidators adds the "username" tag to gin's validator engine.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
				return utils.IsValidUsername(strings.TrimSpace(fl.Field().String()))
			})
		}
	})
}

// bindJSON binds the request body into req. On failure it writes a 400 envelope
// and returns false. requiredMsg is used when a required field is absent.
func bindJSON(c *gin.Context, req any, requiredMsg string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Debug("Request binding failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.Failure(bindingMessage(err, requiredMsg)))
		return false
	}
	return true
}

// bindingMessage turns validator errors into the first client-facing message.
func bindingMessage(err error, requiredMsg string) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return "Invalid request body"
	}
	fe := vErrs[0]
	switch fe.Tag() {
	case "required":
		return requiredMsg
	case "username":
		var uErr utils.ValidationError
		if errors.As(utils.ValidateUsername(strings.TrimSpace(fmt.Sprint(fe.Value()))), &uErr) {
			return uErr.Message
		}
	}
	return "Invalid " + fe.Field()
}

// respondError writes the envelope for err. Internal detail is logged, never returned.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLoggerFromContext(c).Error("Request failed", slog.String("error", err.Error()))
	}
	c.JSON(status, dto.Failure(apperrors.PublicMessage(err)))
}

// currentIdentityUserID returns the caller's user ID, writing 401 when missing.
func currentIdentityUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.Failure("No token, authorization denied"))
		return "", false
	}
	return userID, true
}
