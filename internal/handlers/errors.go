// internal/handlers/errors.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/utils"
)

// validationCodeKeys translates coded validation failures.
var validationCodeKeys = map[string]string{
	"USERNAME_TAKEN": i18n.KeyAuthUsernameTaken,
	"EMAIL_TAKEN":    i18n.KeyAuthEmailTaken,
}

// respondError writes the response for an error returned by a service.
// Messages of unexpected and storage failures never reach the client.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		utils.NotFoundResponse(c, apperr.MessageOf(err))
	case apperr.KindValidation:
		code := apperr.CodeOf(err)
		message := apperr.MessageOf(err)
		if key, ok := validationCodeKeys[code]; ok {
			message = i18n.T(lang, key)
		}
		utils.ErrorResponse(c, http.StatusBadRequest, code, message, nil)
	case apperr.KindStorage:
		utils.ErrorResponse(c, http.StatusInternalServerError, "STORAGE_ERROR", i18n.T(lang, i18n.KeyErrorStorage), nil)
	default:
		utils.InternalErrorResponse(c, "")
	}
}
