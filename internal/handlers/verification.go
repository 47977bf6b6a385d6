// internal/handlers/verification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

const loginPath = "/login"

var activationKeys = map[services.ActivationOutcome]string{
	services.ActivationInvalid:       i18n.KeyActivationInvalid,
	services.ActivationExpired:       i18n.KeyActivationExpired,
	services.ActivationAlreadyActive: i18n.KeyActivationAlreadyActive,
	services.ActivationActivated:     i18n.KeyActivationActivated,
}

type VerificationHandler struct {
	userService *services.UserService
}

func NewVerificationHandler(userService *services.UserService) *VerificationHandler {
	return &VerificationHandler{
		userService: userService,
	}
}

// GET /activation?token=
func (h *VerificationHandler) Activate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	outcome, err := h.userService.Activate(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.RedirectResponse(c, loginPath, i18n.T(lang, activationKeys[outcome]))
}
