// Package memory implements repository.Store on top of in-process maps. It is
// used by the service and handler tests and by local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
)

type dataset struct {
	products   map[uuid.UUID]models.Product
	images     map[uuid.UUID]models.ProductImage
	brands     map[uuid.UUID]models.Brand
	categories map[uuid.UUID]models.Category
	filters    map[uuid.UUID]models.ProductFilter
	orders     map[uuid.UUID]models.UserOrder
	users      map[uuid.UUID]models.User
	tokens     map[uuid.UUID]models.ConfirmationToken
	audits     []models.AuditLog
	sequence   map[uuid.UUID]uint64
}

func newDataset() *dataset {
	return &dataset{
		products:   make(map[uuid.UUID]models.Product),
		images:     make(map[uuid.UUID]models.ProductImage),
		brands:     make(map[uuid.UUID]models.Brand),
		categories: make(map[uuid.UUID]models.Category),
		filters:    make(map[uuid.UUID]models.ProductFilter),
		orders:     make(map[uuid.UUID]models.UserOrder),
		users:      make(map[uuid.UUID]models.User),
		tokens:     make(map[uuid.UUID]models.ConfirmationToken),
		sequence:   make(map[uuid.UUID]uint64),
	}
}

// clone copies the maps. Stored values are never mutated in place, so a
// shallow copy of each map is a consistent snapshot.
func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.images {
		c.images[k] = v
	}
	for k, v := range d.brands {
		c.brands[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.filters {
		c.filters[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.sequence {
		c.sequence[k] = v
	}
	c.audits = append(c.audits, d.audits...)
	return c
}

// Store is a repository.Store backed by maps. Transactions restore the
// previous state when the callback fails; they do not isolate concurrent
// callers from each other.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	seq    uint64
	writes int
	now    func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newDataset(), now: time.Now}
}

// Writes reports how many mutating repository calls have been made.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) Products() repository.ProductRepository    { return &products{s} }
func (s *Store) Images() repository.ImageRepository        { return &images{s} }
func (s *Store) Brands() repository.BrandRepository        { return &brands{s} }
func (s *Store) Categories() repository.CategoryRepository { return &categories{s} }
func (s *Store) Filters() repository.FilterRepository      { return &filters{s} }
func (s *Store) Orders() repository.OrderRepository        { return &orders{s} }
func (s *Store) Users() repository.UserRepository          { return &users{s} }
func (s *Store) Tokens() repository.TokenRepository        { return &tokens{s} }
func (s *Store) Audits() repository.AuditRepository        { return &audits{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	writes := s.writes
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.writes = writes
		s.mu.Unlock()
		return err
	}
	return nil
}

// touch fills in the identifier and timestamps the way the GORM hooks do.
// The caller must hold s.mu.
func (s *Store) touch(base *models.BaseModel) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if _, ok := s.data.sequence[base.ID]; !ok {
		s.seq++
		s.data.sequence[base.ID] = s.seq
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	s.writes++
}

func copyIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	return append([]uuid.UUID(nil), ids...)
}

type products struct{ s *Store }

func (r *products) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := r.assemble(product)
	return &result, nil
}

func (r *products) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.products[id]
	return ok, nil
}

func (r *products) FindPage(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := make([]models.Product, 0, len(r.s.data.products))
	for _, product := range r.s.data.products {
		all = append(all, product)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return r.s.data.sequence[all[i].ID] > r.s.data.sequence[all[j].ID]
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]models.Product, 0, end-offset)
	for _, product := range all[offset:end] {
		page = append(page, r.assemble(product))
	}
	return page, total, nil
}

func (r *products) Save(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.touch(&product.BaseModel)
	stored := *product
	stored.FilterIDs = copyIDs(product.FilterIDs)
	stored.Images = nil
	r.s.data.products[stored.ID] = stored
	return nil
}

func (r *products) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.products, id)
	for imageID, image := range r.s.data.images {
		if image.ProductID == id {
			delete(r.s.data.images, imageID)
		}
	}
	r.s.writes++
	return nil
}

// assemble returns a copy of the product with its images attached. The
// caller must hold the store lock.
func (r *products) assemble(product models.Product) models.Product {
	product.FilterIDs = copyIDs(product.FilterIDs)
	product.Images = r.s.imagesOf(product.ID)
	return product
}

func (s *Store) imagesOf(productID uuid.UUID) []models.ProductImage {
	var list []models.ProductImage
	for _, image := range s.data.images {
		if image.ProductID == productID {
			list = append(list, image)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return s.data.sequence[list[i].ID] < s.data.sequence[list[j].ID]
	})
	return list
}

type images struct{ s *Store }

func (r *images) Save(ctx context.Context, image *models.ProductImage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.touch(&image.BaseModel)
	r.s.data.images[image.ID] = *image
	return nil
}

func (r *images) FindByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.imagesOf(productID), nil
}

func (r *images) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.data.images, id)
	}
	r.s.writes++
	return nil
}

type brands struct{ s *Store }

func (r *brands) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	brand, ok := r.s.data.brands[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &brand, nil
}

func (r *brands) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.brands[id]
	return ok, nil
}

func (r *brands) FindAllByDeletedFalse(ctx context.Context) ([]models.Brand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := []models.Brand{}
	for _, brand := range r.s.data.brands {
		if !brand.Deleted {
			list = append(list, brand)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *brands) Save(ctx context.Context, brand *models.Brand) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch(&brand.BaseModel)
	r.s.data.brands[brand.ID] = *brand
	return nil
}

type categories struct{ s *Store }

func (r *categories) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.data.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &category, nil
}

func (r *categories) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.categories[id]
	return ok, nil
}

func (r *categories) FindAllByDeletedFalse(ctx context.Context) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := []models.Category{}
	for _, category := range r.s.data.categories {
		if !category.Deleted {
			list = append(list, category)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *categories) Save(ctx context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch(&category.BaseModel)
	r.s.data.categories[category.ID] = *category
	return nil
}

type filters struct{ s *Store }

func (r *filters) FindAll(ctx context.Context) ([]models.ProductFilter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := make([]models.ProductFilter, 0, len(r.s.data.filters))
	for _, filter := range r.s.data.filters {
		list = append(list, filter)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Label < list[j].Label })
	return list, nil
}

func (r *filters) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductFilter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(ids))
	list := []models.ProductFilter{}
	for _, id := range ids {
		if filter, ok := r.s.data.filters[id]; ok && !seen[id] {
			seen[id] = true
			list = append(list, filter)
		}
	}
	return list, nil
}

func (r *filters) Save(ctx context.Context, filter *models.ProductFilter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch(&filter.BaseModel)
	r.s.data.filters[filter.ID] = *filter
	return nil
}

type orders struct{ s *Store }

func (r *orders) find(match func(models.UserOrder) bool) []models.UserOrder {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := []models.UserOrder{}
	for _, order := range r.s.data.orders {
		if match(order) {
			order.Items = append([]models.OrderItem(nil), order.Items...)
			list = append(list, order)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return r.s.data.sequence[list[i].ID] > r.s.data.sequence[list[j].ID]
	})
	return list
}

func (r *orders) FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.UserOrder, error) {
	return r.find(func(o models.UserOrder) bool { return o.Status == status }), nil
}

func (r *orders) FindByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.UserOrder, error) {
	wanted := make(map[models.OrderStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	return r.find(func(o models.UserOrder) bool { return wanted[o.Status] }), nil
}

func (r *orders) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserOrder, error) {
	return r.find(func(o models.UserOrder) bool { return o.UserID == userID }), nil
}

func (r *orders) Save(ctx context.Context, order *models.UserOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.touch(&order.BaseModel)
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		r.s.touch(&order.Items[i].BaseModel)
	}
	stored := *order
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	r.s.data.orders[stored.ID] = stored
	return nil
}

type users struct{ s *Store }

func (r *users) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.data.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.data.users {
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *users) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, user := range r.s.data.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *users) Save(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch(&user.BaseModel)
	r.s.data.users[user.ID] = *user
	return nil
}

type tokens struct{ s *Store }

func (r *tokens) FindByToken(ctx context.Context, token string) (*models.ConfirmationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, confirmation := range r.s.data.tokens {
		if confirmation.Token == token {
			return &confirmation, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokens) Save(ctx context.Context, token *models.ConfirmationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch(&token.BaseModel)
	r.s.data.tokens[token.ID] = *token
	return nil
}

type audits struct{ s *Store }

func (r *audits) Create(ctx context.Context, entry *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.touch(&entry.BaseModel)
	stored := *entry
	stored.ChangedFields = append([]string(nil), entry.ChangedFields...)
	r.s.data.audits = append(r.s.data.audits, stored)
	return nil
}

func (r *audits) FindByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := []models.AuditLog{}
	for _, entry := range r.s.data.audits {
		if entry.ResourceType == resourceType && entry.ResourceID != nil && *entry.ResourceID == resourceID {
			list = append(list, entry)
		}
	}
	return list, nil
}
