// internal/handlers/product.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

const productListPath = "/admin/products/list"

// Multipart field names of the product form.
const (
	fieldName        = "productName"
	fieldDescription = "description"
	fieldPrice       = "productPrice"
	fieldStock       = "productStock"
	fieldBrand       = "brandId"
	fieldCategory    = "categoryId"
	fieldFilters     = "productFilters"
	fieldImages      = "productImages"
)

type ProductHandler struct {
	productService  *services.ProductService
	defaultPageSize int
	maxPageSize     int
}

func NewProductHandler(productService *services.ProductService, defaultPageSize, maxPageSize int) *ProductHandler {
	return &ProductHandler{
		productService:  productService,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// GET /admin/products/list
func (h *ProductHandler) ListProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.defaultPageSize, h.maxPageSize)

	result, err := h.productService.ListProducts(c.Request.Context(), params.Page, params.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /admin/products/view/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, product)
}

// GET /admin/products/addProduct
func (h *ProductHandler) NewProductForm(c *gin.Context) {
	form, err := h.productService.ProductForm(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, form)
}

// GET /admin/products/editProduct/:id
func (h *ProductHandler) EditProductForm(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	form, err := h.productService.ProductForm(c.Request.Context(), &id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, form)
}

// POST /admin/products/addProduct/save
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	fields, err := readProductForm(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	req := &services.CreateProductRequest{
		Price:     fields.Price,
		Stock:     fields.Stock,
		FilterIDs: fields.FilterIDs,
		Images:    fields.Images,
	}
	if fields.Name != nil {
		req.Name = *fields.Name
	}
	if fields.Description != nil {
		req.Description = *fields.Description
	}
	if fields.BrandID != nil {
		req.BrandID = *fields.BrandID
	}
	if fields.CategoryID != nil {
		req.CategoryID = *fields.CategoryID
	}

	if _, err := h.productService.CreateProduct(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}

	utils.RedirectResponse(c, productListPath, i18n.T(lang, i18n.KeyProductCreated))
}

// POST /admin/products/editProduct/edit/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := productID(c)
	if !ok {
		return
	}

	// A missing product is reported before any form error
	if err := h.productService.RequireProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	req, err := readProductForm(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	result, err := h.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyProductUnchanged, result.Product.Name)
	if result.Changed() {
		message = i18n.T(lang, i18n.KeyProductUpdated, result.Product.Name, strings.Join(result.Changes, ", "))
	}
	utils.RedirectResponse(c, productListPath, message)
}

// POST /admin/products/block/:id
func (h *ProductHandler) ToggleBlock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := h.productService.ToggleBlock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	key := i18n.KeyProductBlocked
	if product.Active() {
		key = i18n.KeyProductActive
	}
	utils.RedirectResponse(c, productListPath, i18n.T(lang, key))
}

// POST /admin/products/deleteProduct/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.RedirectResponse(c, productListPath, i18n.T(lang, i18n.KeyProductDeleted))
}

func productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyProductNotFound))
		return uuid.Nil, false
	}
	return id, true
}

// readProductForm reads the product form fields. Fields that are missing
// or blank stay nil so the service leaves them alone.
func readProductForm(c *gin.Context) (*services.UpdateProductRequest, error) {
	req := &services.UpdateProductRequest{}

	if value, ok := c.GetPostForm(fieldName); ok {
		req.Name = &value
	}
	if value, ok := c.GetPostForm(fieldDescription); ok {
		req.Description = &value
	}

	if value := strings.TrimSpace(c.PostForm(fieldPrice)); value != "" {
		price, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid product price %q", value)
		}
		req.Price = &price
	}
	if value := strings.TrimSpace(c.PostForm(fieldStock)); value != "" {
		stock, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid product stock %q", value)
		}
		req.Stock = &stock
	}

	var err error
	if req.BrandID, err = optionalID(c.PostForm(fieldBrand), "brand"); err != nil {
		return nil, err
	}
	if req.CategoryID, err = optionalID(c.PostForm(fieldCategory), "category"); err != nil {
		return nil, err
	}

	for _, value := range c.PostFormArray(fieldFilters) {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q", value)
		}
		req.FilterIDs = append(req.FilterIDs, id)
	}

	if req.Images, err = readUploads(c, fieldImages); err != nil {
		return nil, err
	}
	return req, nil
}

func optionalID(value, field string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s id %q", field, value)
	}
	return &id, nil
}

func readUploads(c *gin.Context, field string) ([]services.UploadedFile, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	headers := form.File[field]
	uploads := make([]services.UploadedFile, 0, len(headers))
	for _, header := range headers {
		data, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, services.UploadedFile{Name: header.Filename, Data: data})
	}
	return uploads, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	return data, nil
}
