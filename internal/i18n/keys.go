// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthAccountDisabled    = "auth.account_disabled"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthUsernameTaken      = "auth.username_taken"
	KeyAuthEmailTaken         = "auth.email_taken"

	// Account activation
	KeyActivationInvalid       = "activation.invalid"
	KeyActivationExpired       = "activation.expired"
	KeyActivationActivated     = "activation.activated"
	KeyActivationAlreadyActive = "activation.already_active"

	// Products
	KeyProductCreated   = "product.created"
	KeyProductUpdated   = "product.updated"
	KeyProductUnchanged = "product.unchanged"
	KeyProductBlocked   = "product.blocked"
	KeyProductActive    = "product.active"
	KeyProductDeleted   = "product.deleted"
	KeyProductNotFound  = "product.not_found"

	// Catalog lookups
	KeyBrandCreated     = "brand.created"
	KeyBrandDeleted     = "brand.deleted"
	KeyBrandNotFound    = "brand.not_found"
	KeyCategoryCreated  = "category.created"
	KeyCategoryDeleted  = "category.deleted"
	KeyCategoryNotFound = "category.not_found"
	KeyFilterCreated    = "filter.created"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Errors
	KeyErrorNotFound  = "error.not_found"
	KeyErrorStorage   = "error.storage"
	KeyErrorTechnical = "error.technical"
	KeyErrorRateLimit = "error.rate_limit"
)
