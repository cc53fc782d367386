package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/storage"
	"github.com/biztrack/biztrack-server/internal/subscription"
	"github.com/biztrack/biztrack-server/internal/tenant"
	"github.com/biztrack/biztrack-server/pkg/crypto"
)

// fakeStore satisfies storage.Store for handler tests. Only the methods a
// test exercises are implemented; the embedded interface panics on anything
// else, which is exactly the signal we want.
type fakeStore struct {
	storage.Store

	users     map[uuid.UUID]*models.User
	counts    map[models.ResourceType]int
	customers []*models.Customer
	branches  []*models.Branch
	events    []*models.EventLog
	stores    map[string]*models.Store
	products  []*models.Product
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[uuid.UUID]*models.User),
		counts: make(map[models.ResourceType]int),
		stores: make(map[string]*models.Store),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return storage.ErrDuplicateKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateUser(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetTenant(_ context.Context, tenantID uuid.UUID) (*models.User, error) {
	return f.GetUser(context.Background(), tenantID)
}

func (f *fakeStore) CountResource(_ context.Context, _ tenant.Scope, resource models.ResourceType) (int, error) {
	return f.counts[resource], nil
}

func (f *fakeStore) CreateEventLog(_ context.Context, event *models.EventLog) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) CreateBranch(_ context.Context, branch *models.Branch) error {
	branch.ID = uuid.New()
	f.branches = append(f.branches, branch)
	return nil
}

func (f *fakeStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	customer.ID = uuid.New()
	f.customers = append(f.customers, customer)
	return nil
}

func (f *fakeStore) GetStoreBySlug(_ context.Context, slug string) (*models.Store, error) {
	st, ok := f.stores[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) ListProducts(_ context.Context, _ tenant.Scope, _, _ int) ([]*models.Product, int64, error) {
	return f.products, int64(len(f.products)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "biztrack-server", Version: "test"},
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Subscription: config.SubscriptionConfig{
			TrialDays: 40,
			TrialLimits: models.Limits{
				InvoiceLimit:  20,
				BranchLimit:   1,
				UserLimit:     5,
				CustomerLimit: 5,
			},
			Plans: map[string]models.Limits{},
		},
	}
}

func newTestServer(store *fakeStore) *RESTServer {
	return NewRESTServer(testConfig(), store, notify.NewPublisher(nil), nil)
}

// seedTenant creates a subscriber whose subscription is shaped by mutate.
func seedTenant(t *testing.T, store *fakeStore, cfg *config.Config, mutate func(*models.Subscription)) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("test-password")
	require.NoError(t, err)

	sub := subscription.NewTrial(&cfg.Subscription, time.Now().UTC())
	if mutate != nil {
		mutate(sub)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		FirstName:    "Alex",
		PasswordHash: hash,
		Role:         models.RoleSubscriber,
		IsActive:     true,
		Subscription: sub,
	}
	store.users[user.ID] = user
	return user
}

func bearerToken(t *testing.T, s *RESTServer, user *models.User) string {
	t.Helper()
	access, _, err := s.auth.GenerateTokenPair(user)
	require.NoError(t, err)
	return "Bearer " + access
}

func doJSON(s *RESTServer, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	payload := map[string]string{
		"email":     "new@example.com",
		"password":  "long enough",
		"firstName": "Nadia",
	}

	rec := doJSON(s, http.MethodPost, "/api/v1/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.RoleSubscriber, created.Role)
	require.NotNil(t, created.Subscription)
	assert.Equal(t, models.PlanTrial, created.Subscription.Plan)
	assert.Equal(t, 20, created.Subscription.Limits.InvoiceLimit)

	require.Len(t, store.branches, 1)
	assert.Equal(t, "Main Branch", store.branches[0].Name)
	assert.Equal(t, created.ID, store.branches[0].UserID)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := doJSON(s, http.MethodPost, "/api/v1/auth/register", "", payload)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := doJSON(s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":     "other@example.com",
			"password":  "short",
			"firstName": "Nadia",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)
	user := seedTenant(t, store, testConfig(), nil)

	t.Run("valid credentials get tokens", func(t *testing.T) {
		rec := doJSON(s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "test-password",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["access_token"])
		assert.NotEmpty(t, resp["refresh_token"])
		assert.Equal(t, "Bearer", resp["token_type"])
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		rec := doJSON(s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("suspended account is forbidden", func(t *testing.T) {
		user.IsActive = false
		defer func() { user.IsActive = true }()

		rec := doJSON(s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "test-password",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCreateCustomerLimit(t *testing.T) {
	restricted := func(sub *models.Subscription) {
		sub.EndDate = time.Now().UTC().Add(-24 * time.Hour)
		sub.IsExpired = true
	}

	payload := map[string]string{"name": "Jane's Cafe"}

	t.Run("under limit creates the customer", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)
		user := seedTenant(t, store, testConfig(), restricted)
		store.counts[models.ResourceCustomers] = 2

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", bearerToken(t, s, user), payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, store.customers, 1)
		assert.Equal(t, user.ID, store.customers[0].UserID)
	})

	t.Run("at limit denies with the check result", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)
		user := seedTenant(t, store, testConfig(), restricted)
		store.counts[models.ResourceCustomers] = 5

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", bearerToken(t, s, user), payload)
		require.Equal(t, http.StatusForbidden, rec.Code)

		var result subscription.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.Allowed)
		assert.Equal(t, 5, result.Current)
		assert.Equal(t, 5, result.Limit)
		assert.Contains(t, result.Message, "limit reached")

		require.Len(t, store.events, 1)
		assert.Equal(t, models.EventLimitDenied, store.events[0].Type)
		assert.Empty(t, store.customers)
	})

	t.Run("near limit sets the usage warning header", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)
		user := seedTenant(t, store, testConfig(), restricted)
		store.counts[models.ResourceCustomers] = 4

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", bearerToken(t, s, user), payload)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Usage-Warning"))
	})

	t.Run("active subscription ignores the limit", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)
		user := seedTenant(t, store, testConfig(), nil)
		store.counts[models.ResourceCustomers] = 50

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", bearerToken(t, s, user), payload)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("cashier cannot manage parties", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)
		tenantUser := seedTenant(t, store, testConfig(), nil)

		branchID := uuid.New()
		cashier := &models.User{
			ID:            uuid.New(),
			Email:         "till@example.com",
			Role:          models.RoleCashier,
			IsActive:      true,
			MainAccountID: &tenantUser.ID,
			BranchID:      &branchID,
		}
		store.users[cashier.ID] = cashier

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", bearerToken(t, s, cashier), payload)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "not permitted")
	})

	t.Run("no token is unauthorized", func(t *testing.T) {
		store := newFakeStore()
		s := newTestServer(store)

		rec := doJSON(s, http.MethodPost, "/api/v1/customers/", "", payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCheckLimitEndpoint(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)
	user := seedTenant(t, store, testConfig(), nil)
	store.counts[models.ResourceInvoices] = 16

	t.Run("query parameter form", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/v1/subscription/check-limit?resource=invoices", bearerToken(t, s, user), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result subscription.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Allowed)
		assert.Equal(t, 16, result.Current)
		assert.Equal(t, 80, result.Percentage)
		assert.True(t, result.Warning)
	})

	t.Run("unknown resource is a bad request", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/v1/subscription/check-limit?resource=gadgets", bearerToken(t, s, user), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStorefront(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)
	owner := seedTenant(t, store, testConfig(), nil)

	public := &models.Store{Name: "Corner Shop", Slug: "corner-shop", IsPublic: true}
	public.ID = uuid.New()
	public.UserID = owner.ID
	store.stores[public.Slug] = public

	private := &models.Store{Name: "Back Office", Slug: "back-office", IsPublic: false}
	private.ID = uuid.New()
	private.UserID = owner.ID
	store.stores[private.Slug] = private

	active := &models.Product{Name: "Espresso Beans 1kg", SKU: "BEAN-1", Price: 25, Cost: 12, StockQty: 10, IsActive: true}
	active.ID = uuid.New()
	inactive := &models.Product{Name: "Old Grinder", SKU: "GRND-9", Price: 99, IsActive: false}
	inactive.ID = uuid.New()
	store.products = []*models.Product{active, inactive}

	t.Run("public store is visible", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/v1/storefront/corner-shop/", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Corner Shop")
	})

	t.Run("private store is not found", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/v1/storefront/back-office/", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("product list hides cost and inactive items", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/v1/storefront/corner-shop/products", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Products []map[string]interface{} `json:"products"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Products, 1)
		assert.Equal(t, "Espresso Beans 1kg", resp.Products[0]["name"])
		assert.Equal(t, true, resp.Products[0]["inStock"])
		assert.NotContains(t, resp.Products[0], "cost")
	})
}

func TestGetSubscription(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)
	user := seedTenant(t, store, testConfig(), nil)
	store.counts[models.ResourceInvoices] = 3

	rec := doJSON(s, http.MethodGet, "/api/v1/subscription/", bearerToken(t, s, user), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		State subscription.State    `json:"state"`
		Usage []subscription.Result `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.State.Restricted)
	assert.Len(t, resp.Usage, len(models.AllResourceTypes))
}
