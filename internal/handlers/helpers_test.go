package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/notify"
	"github.com/producthunt/apiserver/internal/payment"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/storage"
	"github.com/producthunt/apiserver/internal/store/memstore"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/require"
)

// stubProvider stands in for the card processor. Intents it creates succeed
// immediately unless a test edits them.
type stubProvider struct {
	mu      sync.Mutex
	intents map[string]payment.Intent
	err     error
}

func newStubProvider() *stubProvider {
	return &stubProvider{intents: make(map[string]payment.Intent)}
}

func (p *stubProvider) CreateIntent(_ context.Context, amount int64, currency, payer string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	id := fmt.Sprintf("pi_%d", len(p.intents)+1)
	p.intents[id] = payment.Intent{
		ID:       id,
		Status:   payment.IntentSucceeded,
		Amount:   amount,
		Currency: currency,
		Payer:    payer,
	}
	return id + "_secret", nil
}

func (p *stubProvider) RetrieveIntent(_ context.Context, id string) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return payment.Intent{}, p.err
	}
	intent, ok := p.intents[id]
	if !ok {
		return payment.Intent{}, fmt.Errorf("%w: %s", payment.ErrIntentNotFound, id)
	}
	return intent, nil
}

func (p *stubProvider) setStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent := p.intents[id]
	intent.Status = status
	p.intents[id] = intent
}

type testAPI struct {
	router   chi.Router
	users    *memstore.UserRepository
	products *services.ProductService
	tokens   *auth.TokenService
	hub      *notify.Hub
	images   *storage.MemoryStorage
	provider *stubProvider
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	productRepo := memstore.NewProductRepository()
	userRepo := memstore.NewUserRepository()
	reviewRepo := memstore.NewReviewRepository()
	couponRepo := memstore.NewCouponRepository()
	hub := notify.NewHub(nil)

	userSvc := services.NewUserService(userRepo)
	productSvc := services.NewProductService(productRepo, reviewRepo, hub, nil)
	voteSvc := services.NewVoteService(productRepo, hub, nil)
	reviewSvc := services.NewReviewService(reviewRepo, productRepo, hub)
	provider := newStubProvider()
	paymentSvc := services.NewPaymentService(memstore.NewPaymentRepository(), userRepo, couponRepo, provider, "usd", nil)
	couponSvc := services.NewCouponService(couponRepo)
	statsSvc := services.NewStatsService(productRepo, userRepo, reviewRepo)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	authn := NewAuthenticator(tokens, userSvc, nil)
	images := storage.NewMemoryStorage("images")

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, NewAuthHandler(userSvc, tokens, CookiePolicyFor(false), nil), authn)
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, NewUserHandler(userSvc, nil), authn)
	})
	r.Route("/products", func(r chi.Router) {
		ProductRouter(r, NewProductHandler(productSvc, voteSvc, storage.NewStorage(images, "https://cdn.test"), authn, nil))
	})
	r.Route("/reviews", func(r chi.Router) {
		ReviewRouter(r, NewReviewHandler(reviewSvc, productSvc, authn, nil))
	})
	r.Route("/payments", func(r chi.Router) {
		PaymentRouter(r, NewPaymentHandler(paymentSvc, nil), authn)
	})
	r.Route("/coupons", func(r chi.Router) {
		CouponRouter(r, NewCouponHandler(couponSvc, nil), authn)
	})
	r.Route("/admin", func(r chi.Router) {
		AdminRouter(r, NewStatsHandler(statsSvc, nil), authn)
	})
	r.Get("/events", NewEventsHandler(hub, 20*time.Millisecond, nil, nil).Stream)

	return &testAPI{
		router:   r,
		users:    userRepo,
		products: productSvc,
		tokens:   tokens,
		hub:      hub,
		images:   images,
		provider: provider,
	}
}

// login registers email with the stored role and returns a bearer token whose
// role claim is none, so guards must consult the store.
func (a *testAPI) login(t *testing.T, email string, role types.Role) string {
	t.Helper()
	ctx := context.Background()
	_, _, err := a.users.Register(ctx, types.User{Email: email, Role: types.RoleNone})
	require.NoError(t, err)
	if role != types.RoleNone {
		require.NoError(t, a.users.SetRole(ctx, email, role))
	}
	token, _, err := a.tokens.Issue(auth.Identity{Email: email, Name: "Test User"})
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, rec).Kind
}

func (a *testAPI) submit(t *testing.T, token string, req ProductRequest) types.Product {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/products", req, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[types.Product](t, rec)
}
