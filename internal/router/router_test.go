package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/middleware"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
	"github.com/needus/ecommerce-backend/internal/services"
)

var pngData = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	store  *memory.Store
	cfg    *config.Config
	audits *middleware.AuditRecorder
	router *gin.Engine
	token  string
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.store = memory.NewStore()
	s.cfg = &config.Config{
		Server:       config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		JWT:          config.JWTConfig{SecretKey: "router-test-secret", AccessTokenTTL: 1},
		Storage:      config.StorageConfig{Backend: "local", MaxImageSize: 1 << 20},
		App:          config.AppConfig{BaseURL: "http://shop.test"},
		Verification: config.VerificationConfig{TokenTTL: 24},
		Catalog:      config.CatalogConfig{DefaultPageSize: 10, MaxPageSize: 100},
		RateLimit:    config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		I18n:         config.I18nConfig{DefaultLocale: "en"},
		Admin:        config.AdminConfig{Username: "admin", Email: "admin@shop.test", Password: "Admin#123"},
	}

	attachments, err := services.NewLocalAttachmentStore(s.T().TempDir(), "/uploads")
	s.Require().NoError(err)
	s.audits = middleware.NewAuditRecorder(s.store, 64)
	s.router = Initialize(s.store, attachments, s.audits, s.cfg)

	users := services.NewUserService(s.store, services.NewNotificationService(s.cfg), s.cfg)
	_, err = users.EnsureAdmin(context.Background(), s.cfg.Admin)
	s.Require().NoError(err)

	s.token = s.login("admin", "Admin#123")
}

func (s *RouterTestSuite) TearDownTest() {
	s.Require().NoError(s.audits.Close(context.Background()))
}

func (s *RouterTestSuite) do(req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (s *RouterTestSuite) authed(method, path string, body *bytes.Buffer, contentType string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req
}

func (s *RouterTestSuite) login(username, password string) string {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w, resp := s.do(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &data))
	return data.Token
}

func (s *RouterTestSuite) postForm(path string, values url.Values) (*httptest.ResponseRecorder, apiResponse) {
	return s.do(s.authed(http.MethodPost, path, bytes.NewBufferString(values.Encode()), "application/x-www-form-urlencoded"))
}

func (s *RouterTestSuite) postMultipart(path string, values map[string][]string, images map[string][]byte) (*httptest.ResponseRecorder, apiResponse) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, list := range values {
		for _, value := range list {
			s.Require().NoError(writer.WriteField(key, value))
		}
	}
	for name, data := range images {
		part, err := writer.CreateFormFile("productImages", name)
		s.Require().NoError(err)
		_, err = part.Write(data)
		s.Require().NoError(err)
	}
	s.Require().NoError(writer.Close())

	return s.do(s.authed(http.MethodPost, path, body, writer.FormDataContentType()))
}

func (s *RouterTestSuite) redirect(resp apiResponse) (string, string) {
	var data struct {
		Redirect string `json:"redirect"`
		Message  string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &data))
	return data.Redirect, data.Message
}

func (s *RouterTestSuite) seedCatalog() (brandID, categoryID uuid.UUID) {
	ctx := context.Background()
	brand := models.Brand{Name: "Acme"}
	s.Require().NoError(s.store.Brands().Save(ctx, &brand))
	category := models.Category{Name: "Tools"}
	s.Require().NoError(s.store.Categories().Save(ctx, &category))
	return brand.ID, category.ID
}

func (s *RouterTestSuite) createWidget(brandID, categoryID uuid.UUID) *models.Product {
	w, resp := s.postMultipart("/admin/products/addProduct/save", map[string][]string{
		"productName":  {"Widget"},
		"description":  {"A useful widget"},
		"productPrice": {"9.99"},
		"productStock": {"5"},
		"brandId":      {brandID.String()},
		"categoryId":   {categoryID.String()},
	}, map[string][]byte{"front.png": pngData})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	target, message := s.redirect(resp)
	s.Equal("/admin/products/list", target)
	s.Equal("Product added successfully", message)

	products, _, err := s.store.Products().FindPage(context.Background(), 0, 1)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	return &products[0]
}

func (s *RouterTestSuite) TestHealth() {
	w, _ := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "healthy")
}

func (s *RouterTestSuite) TestMetrics() {
	s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `ecommerce_http_requests_total{method="GET",route="/health",status="200"}`)
}

func (s *RouterTestSuite) TestAdminRoutesRequireAdmin() {
	w, resp := s.do(httptest.NewRequest(http.MethodGet, "/admin/products/list", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Require().NotNil(resp.Error)
	s.Equal("UNAUTHORIZED", resp.Error.Code)
	s.Equal("Authentication required", resp.Error.Message)

	req := httptest.NewRequest(http.MethodGet, "/admin/products/list", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w, resp = s.do(req)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Require().NotNil(resp.Error)
	s.Equal("UNAUTHORIZED", resp.Error.Code)

	user := &models.User{Username: "shopper", Email: "shopper@shop.test", Role: models.UserRoleUser, Enabled: true}
	s.Require().NoError(user.SetPassword("Secret#123"))
	s.Require().NoError(s.store.Users().Save(context.Background(), user))

	s.token = s.login("shopper", "Secret#123")
	w, resp = s.do(s.authed(http.MethodGet, "/admin/products/list", nil, ""))
	s.Equal(http.StatusForbidden, w.Code)
	s.Require().NotNil(resp.Error)
	s.Equal("FORBIDDEN", resp.Error.Code)
}

func (s *RouterTestSuite) TestRegistrationAndActivation() {
	body, _ := json.Marshal(map[string]string{
		"username": "newbie",
		"email":    "newbie@shop.test",
		"password": "Secret#123",
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w, resp := s.do(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	target, message := s.redirect(resp)
	s.Equal("/login", target)
	s.Contains(message, "verification email")

	req = httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{"username":"newbie","password":"Secret#123"}`)))
	req.Header.Set("Content-Type", "application/json")
	w, _ = s.do(req)
	s.Equal(http.StatusForbidden, w.Code)

	w, resp = s.do(httptest.NewRequest(http.MethodGet, "/activation?token=bogus", nil))
	s.Require().Equal(http.StatusOK, w.Code)
	_, message = s.redirect(resp)
	s.Equal("Your verification token is invalid", message)
}

func (s *RouterTestSuite) TestProductLifecycle() {
	brandID, categoryID := s.seedCatalog()
	product := s.createWidget(brandID, categoryID)
	s.Require().Len(product.Images, 1)

	// The stored image is served from the uploads directory
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+product.Images[0].FileName, nil))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(pngData, w.Body.Bytes())

	w, resp := s.do(s.authed(http.MethodGet, "/admin/products/list?pageNo=1&pageSize=5", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("1", w.Header().Get("X-Total-Count"))
	var views []services.ProductView
	s.Require().NoError(json.Unmarshal(resp.Data, &views))
	s.Require().Len(views, 1)
	s.Equal("Widget", views[0].Name)
	s.Require().Len(views[0].ImageURLs, 1)
	s.Contains(views[0].ImageURLs[0], "/uploads/")

	w, resp = s.do(s.authed(http.MethodGet, "/admin/products/view/"+product.ID.String(), nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(resp.Data), `"name":"Widget"`)

	editPath := "/admin/products/editProduct/edit/" + product.ID.String()

	w, resp = s.postMultipart(editPath, map[string][]string{"productStock": {"12"}, "productName": {""}}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	_, message := s.redirect(resp)
	s.Equal("Product : Widget is updated (stock)", message)

	stored, err := s.store.Products().FindByID(context.Background(), product.ID)
	s.Require().NoError(err)
	s.Equal(12, stored.Stock)
	s.True(decimal.RequireFromString("9.99").Equal(stored.Price))

	w, resp = s.postForm(editPath, url.Values{"productStock": {"12"}})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	_, message = s.redirect(resp)
	s.Equal("Product : Widget has no changes", message)

	w, resp = s.postForm("/admin/products/block/"+product.ID.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	_, message = s.redirect(resp)
	s.Equal("Product is Blocked", message)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/products/editProduct/"+product.ID.String(), nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(resp.Data), `"status":"blocked"`)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/products/history/"+product.ID.String(), nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(resp.Data), "product.toggle_block")

	w, resp = s.postForm("/admin/products/deleteProduct/"+product.ID.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	_, message = s.redirect(resp)
	s.Equal("Product is deleted", message)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+product.Images[0].FileName, nil))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestUpdateErrors() {
	brandID, categoryID := s.seedCatalog()
	product := s.createWidget(brandID, categoryID)

	w, resp := s.postForm("/admin/products/editProduct/edit/"+uuid.NewString(), url.Values{"productStock": {"3"}})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", resp.Error.Code)

	w, _ = s.postForm("/admin/products/editProduct/edit/not-a-uuid", url.Values{"productStock": {"3"}})
	s.Equal(http.StatusNotFound, w.Code)

	gone := models.Brand{Name: "Gone", Deleted: true}
	s.Require().NoError(s.store.Brands().Save(context.Background(), &gone))
	w, resp = s.postForm("/admin/products/editProduct/edit/"+product.ID.String(), url.Values{"brandId": {gone.ID.String()}})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)

	w, _ = s.postForm("/admin/products/editProduct/edit/"+product.ID.String(), url.Values{"productPrice": {"cheap"}})
	s.Equal(http.StatusBadRequest, w.Code)

	w, resp = s.postMultipart("/admin/products/editProduct/edit/"+product.ID.String(), nil,
		map[string][]byte{"notes.png": []byte("plain text pretending")})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)

	stored, err := s.store.Products().FindByID(context.Background(), product.ID)
	s.Require().NoError(err)
	s.Equal(5, stored.Stock)
	s.Equal(brandID, stored.BrandID)
}

func (s *RouterTestSuite) TestCreateRequiresPriceAndStock() {
	brandID, categoryID := s.seedCatalog()
	complete := map[string][]string{
		"productName":  {"Widget"},
		"description":  {"A useful widget"},
		"productPrice": {"9.99"},
		"productStock": {"5"},
		"brandId":      {brandID.String()},
		"categoryId":   {categoryID.String()},
	}

	for _, missing := range []string{"productPrice", "productStock"} {
		values := map[string][]string{}
		for key, value := range complete {
			if key != missing {
				values[key] = value
			}
		}

		w, resp := s.postMultipart("/admin/products/addProduct/save", values, nil)
		s.Equal(http.StatusBadRequest, w.Code, missing)
		s.Require().NotNil(resp.Error, missing)
		s.Equal("VALIDATION_ERROR", resp.Error.Code, missing)
	}

	_, total, err := s.store.Products().FindPage(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *RouterTestSuite) TestUpdateMissingProductWithBadFields() {
	missing := "/admin/products/editProduct/edit/" + uuid.NewString()

	for _, values := range []url.Values{
		{"productPrice": {"cheap"}},
		{"productStock": {"many"}},
		{"brandId": {"not-a-uuid"}},
	} {
		w, resp := s.postForm(missing, values)
		s.Equal(http.StatusNotFound, w.Code, values.Encode())
		s.Require().NotNil(resp.Error)
		s.Equal("NOT_FOUND", resp.Error.Code)
	}
}

func (s *RouterTestSuite) TestLocalizedFlashMessage() {
	brandID, categoryID := s.seedCatalog()
	product := s.createWidget(brandID, categoryID)

	req := s.authed(http.MethodPost, "/admin/products/block/"+product.ID.String(), nil, "")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	w, resp := s.do(req)
	s.Require().Equal(http.StatusOK, w.Code)
	_, message := s.redirect(resp)
	s.NotEqual("Product is Blocked", message)
	s.NotEmpty(message)
}

func (s *RouterTestSuite) TestCatalogRoutes() {
	w, _ := s.postForm("/admin/brands", url.Values{"name": {"Acme"}})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w, _ = s.postForm("/admin/categories", url.Values{"name": {"Tools"}})
	s.Require().Equal(http.StatusOK, w.Code)
	w, _ = s.postForm("/admin/filters", url.Values{"name": {"Eco"}})
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp := s.do(s.authed(http.MethodGet, "/admin/brands", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	var brands struct {
		Brands []models.Brand `json:"brands"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &brands))
	s.Require().Len(brands.Brands, 1)

	w, _ = s.postForm("/admin/brands/"+brands.Brands[0].ID.String()+"/delete", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/products/addProduct", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	var form services.ProductForm
	s.Require().NoError(json.Unmarshal(resp.Data, &form))
	s.Empty(form.Brands)
	s.Len(form.Categories, 1)
	s.Len(form.Filters, 1)

	w, _ = s.postForm("/admin/categories/"+uuid.NewString()+"/delete", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.postForm("/admin/brands", url.Values{"name": {"  "}})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestOrdersByStatus() {
	ctx := context.Background()
	customer := uuid.New()
	for _, status := range []models.OrderStatus{models.OrderStatusPending, models.OrderStatusDelivered, models.OrderStatusPending} {
		order := models.UserOrder{UserID: customer, Status: status, TotalAmount: decimal.NewFromInt(10)}
		s.Require().NoError(s.store.Orders().Save(ctx, &order))
	}

	var orders struct {
		Orders []models.UserOrder `json:"orders"`
	}

	w, resp := s.do(s.authed(http.MethodGet, "/admin/orders?status=pending", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(resp.Data, &orders))
	s.Len(orders.Orders, 2)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/orders?status=PENDING,DELIVERED", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(resp.Data, &orders))
	s.Len(orders.Orders, 3)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/orders/user/"+customer.String(), nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(resp.Data, &orders))
	s.Len(orders.Orders, 3)

	w, _ = s.do(s.authed(http.MethodGet, "/admin/orders?status=SHIPPED", nil, ""))
	s.Equal(http.StatusBadRequest, w.Code)

	w, resp = s.do(s.authed(http.MethodGet, "/admin/dashboard", nil, ""))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(resp.Data), `"PENDING":2`)
}
