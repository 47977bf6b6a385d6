// internal/handlers/catalog.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GET /admin/brands
func (h *CatalogHandler) ListBrands(c *gin.Context) {
	brands, err := h.catalogService.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"brands": brands})
}

// POST /admin/brands
func (h *CatalogHandler) CreateBrand(c *gin.Context) {
	req, ok := bindCatalogEntry(c)
	if !ok {
		return
	}
	if _, err := h.catalogService.CreateBrand(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	utils.RedirectResponse(c, "/admin/brands", i18n.T(utils.GetLangFromContext(c), i18n.KeyBrandCreated))
}

// POST /admin/brands/:id/delete
func (h *CatalogHandler) DeleteBrand(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.T(lang, i18n.KeyBrandNotFound))
		return
	}
	if err := h.catalogService.DeleteBrand(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.RedirectResponse(c, "/admin/brands", i18n.T(lang, i18n.KeyBrandDeleted))
}

// GET /admin/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"categories": categories})
}

// POST /admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	req, ok := bindCatalogEntry(c)
	if !ok {
		return
	}
	if _, err := h.catalogService.CreateCategory(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	utils.RedirectResponse(c, "/admin/categories", i18n.T(utils.GetLangFromContext(c), i18n.KeyCategoryCreated))
}

// POST /admin/categories/:id/delete
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.T(lang, i18n.KeyCategoryNotFound))
		return
	}
	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.RedirectResponse(c, "/admin/categories", i18n.T(lang, i18n.KeyCategoryDeleted))
}

// GET /admin/filters
func (h *CatalogHandler) ListFilters(c *gin.Context) {
	filters, err := h.catalogService.ListFilters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"filters": filters})
}

// POST /admin/filters
func (h *CatalogHandler) CreateFilter(c *gin.Context) {
	req, ok := bindCatalogEntry(c)
	if !ok {
		return
	}
	if _, err := h.catalogService.CreateFilter(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	utils.RedirectResponse(c, "/admin/filters", i18n.T(utils.GetLangFromContext(c), i18n.KeyFilterCreated))
}

func bindCatalogEntry(c *gin.Context) (*services.CatalogEntryRequest, bool) {
	var req services.CatalogEntryRequest
	if err := c.ShouldBind(&req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return nil, false
	}
	return &req, true
}
