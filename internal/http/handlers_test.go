package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tuckshop/internal/domain"
	"tuckshop/internal/repository"
	"tuckshop/internal/service"
)

type captureMailer struct {
	welcome       chan string
	confirmations chan domain.Order
	resetTokens   chan string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		welcome:       make(chan string, 8),
		confirmations: make(chan domain.Order, 8),
		resetTokens:   make(chan string, 8),
	}
}

func (m *captureMailer) SendWelcome(ctx context.Context, user domain.User) error {
	m.welcome <- user.Email
	return nil
}

func (m *captureMailer) SendOrderConfirmation(ctx context.Context, user domain.User, order domain.Order) error {
	m.confirmations <- order
	return nil
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, rawToken string) error {
	m.resetTokens <- rawToken
	return nil
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email")
		panic("unreachable")
	}
}

func setupServer(t *testing.T) (*Server, *repository.MemoryStore, *captureMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	mailer := newCaptureMailer()
	log := zerolog.Nop()

	auth := service.NewAuthService(repository.NewMemoryUsers(store), mailer, log, []byte("test-secret"))
	catalog := service.NewCatalogService(store)
	orders := service.NewOrderService(store, repository.NewMemoryOrders(store), mailer, log, false)
	passwords := service.NewPasswordService(repository.NewMemoryUsers(store), repository.NewMemoryResets(store), mailer, log)

	return NewServer(auth, catalog, orders, passwords, log), store, mailer
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: bad response body %q", method, path, w.Body.String())
		}
	}
	return w.Code, resp
}

func signupAndLogin(t *testing.T, s *Server, mailer *captureMailer) string {
	t.Helper()
	code, _ := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "secret1",
	})
	if code != http.StatusCreated {
		t.Fatalf("signup: %d", code)
	}
	waitFor(t, mailer.welcome)

	code, resp := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "asha@example.com", "password": "secret1",
	})
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, resp)
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %v", resp)
	}
	return token
}

func seedProduct(t *testing.T, s *Server, name string, price float64, qty int64, cat string) {
	t.Helper()
	code, resp := doJSON(t, s, http.MethodPost, "/api/products", "", gin.H{
		"name": name, "price": price, "quantity": qty, "imageUrl": "/img/" + name + ".png", "category": cat,
	})
	if code != http.StatusCreated {
		t.Fatalf("seed %s: %d %v", name, code, resp)
	}
}

func TestAuthEndpoints(t *testing.T) {
	s, _, mailer := setupServer(t)
	token := signupAndLogin(t, s, mailer)

	// duplicate signup
	code, resp := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Other", "email": "ASHA@example.com", "password": "secret2",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: %d %v", code, resp)
	}

	// wrong password and unknown email get the same body
	code1, resp1 := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "nope"})
	code2, resp2 := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com", "password": "secret1"})
	if code1 != http.StatusUnauthorized || code2 != http.StatusUnauthorized {
		t.Fatalf("bad login codes: %d %d", code1, code2)
	}
	if resp1["message"] != resp2["message"] {
		t.Fatalf("login failures distinguishable: %v vs %v", resp1, resp2)
	}

	code, resp = doJSON(t, s, http.MethodPost, "/api/auth/verify-token", token, nil)
	if code != http.StatusOK {
		t.Fatalf("verify: %d %v", code, resp)
	}
	user, _ := resp["user"].(map[string]any)
	if user["email"] != "asha@example.com" || user["role"] != "user" {
		t.Fatalf("claims echo: %v", resp)
	}

	code, resp = doJSON(t, s, http.MethodPost, "/api/auth/verify-token", "", nil)
	if code != http.StatusUnauthorized || resp["message"] != "Access token required" {
		t.Fatalf("missing token: %d %v", code, resp)
	}
	code, resp = doJSON(t, s, http.MethodPost, "/api/auth/verify-token", "garbage", nil)
	if code != http.StatusForbidden || resp["message"] != "Invalid or expired token" {
		t.Fatalf("bad token: %d %v", code, resp)
	}
}

func TestProductEndpoints(t *testing.T) {
	s, _, mailer := setupServer(t)
	seedProduct(t, s, "Chips", 2.5, 10, "Snacks")
	seedProduct(t, s, "Cola", 1.25, 5, "Drinks")

	code, resp := doJSON(t, s, http.MethodPost, "/api/products", "", gin.H{"name": "Pen", "price": 1})
	if code != http.StatusBadRequest || !strings.Contains(resp["message"].(string), "All product fields are required") {
		t.Fatalf("incomplete add: %d %v", code, resp)
	}

	code, resp = doJSON(t, s, http.MethodGet, "/api/products", "", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	if products, _ := resp["products"].([]any); len(products) != 2 {
		t.Fatalf("list length: %v", resp)
	}

	code, _ = doJSON(t, s, http.MethodPut, "/api/products/rename", "", gin.H{"oldName": "Chips", "newName": "Potato Chips"})
	if code != http.StatusOK {
		t.Fatalf("rename: %d", code)
	}
	code, _ = doJSON(t, s, http.MethodPut, "/api/products/rename", "", gin.H{"oldName": "Missing", "newName": "X"})
	if code != http.StatusNotFound {
		t.Fatalf("rename missing: %d", code)
	}

	code, resp = doJSON(t, s, http.MethodPut, "/api/products/update-quantity", "", gin.H{"name": "Potato Chips", "quantity": 3})
	if code != http.StatusOK {
		t.Fatalf("update quantity: %d %v", code, resp)
	}
	code, resp = doJSON(t, s, http.MethodPut, "/api/products/update-price", "", gin.H{"name": "Cola", "price": 1.5})
	if code != http.StatusOK {
		t.Fatalf("update price: %d %v", code, resp)
	}

	code, resp = doJSON(t, s, http.MethodPut, "/api/products/bulk-update-details", "", gin.H{
		"updates": []gin.H{
			{"name": "Cola", "quantity": 20},
			{"name": "Missing", "price": 9},
		},
	})
	if code != http.StatusOK {
		t.Fatalf("bulk update: %d", code)
	}
	if resp["success"] != false || resp["updatedCount"].(float64) != 1 {
		t.Fatalf("bulk update body: %v", resp)
	}

	code, resp = doJSON(t, s, http.MethodPut, "/api/products/bulk-category-update", "", gin.H{
		"updates": []gin.H{{"name": "Cola", "category": "Snacks"}},
	})
	if code != http.StatusOK || resp["message"] != "Updated 1 products" {
		t.Fatalf("bulk category: %d %v", code, resp)
	}

	code, resp = doJSON(t, s, http.MethodPut, "/api/products/category-by-pattern", "", gin.H{
		"pattern": "Chips", "newCategory": "Drinks", "matchType": "endsWith",
	})
	if code != http.StatusOK || resp["modifiedCount"].(float64) != 1 {
		t.Fatalf("pattern: %d %v", code, resp)
	}

	// bulk add requires a session
	code, _ = doJSON(t, s, http.MethodPost, "/api/products/bulk-add", "", gin.H{"products": []gin.H{}})
	if code != http.StatusUnauthorized {
		t.Fatalf("bulk add without token: %d", code)
	}
	token := signupAndLogin(t, s, mailer)
	code, resp = doJSON(t, s, http.MethodPost, "/api/products/bulk-add", token, gin.H{
		"products": []gin.H{
			{"name": "Pen", "price": 1, "quantity": 50, "imageUrl": "/img/pen.png", "category": "Stationery"},
			{"name": "Pen"},
		},
	})
	if code != http.StatusCreated {
		t.Fatalf("bulk add: %d %v", code, resp)
	}
	if resp["createdCount"].(float64) != 1 || len(resp["errors"].([]any)) != 1 {
		t.Fatalf("bulk add body: %v", resp)
	}

	code, _ = doJSON(t, s, http.MethodDelete, "/api/products/Pen", "", nil)
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	// "Potato Chips" was just moved into Drinks, "Cola" was moved out
	code, resp = doJSON(t, s, http.MethodDelete, "/api/products/category/Drinks", "", nil)
	if code != http.StatusOK || resp["deletedCount"].(float64) != 1 {
		t.Fatalf("delete category: %d %v", code, resp)
	}
}

func TestOrderEndpoints(t *testing.T) {
	s, store, mailer := setupServer(t)
	seedProduct(t, s, "Chips", 2.5, 5, "Snacks")
	p, err := store.GetByName(context.Background(), "Chips")
	if err != nil {
		t.Fatal(err)
	}
	token := signupAndLogin(t, s, mailer)

	address := gin.H{
		"fullName": "Asha Rao", "phoneNumber": "9876543210",
		"addressLine1": "Hostel Block C", "city": "Pune", "state": "MH", "pincode": "411001",
	}

	code, _ := doJSON(t, s, http.MethodPost, "/api/orders/place", "", gin.H{})
	if code != http.StatusUnauthorized {
		t.Fatalf("place without token: %d", code)
	}

	code, resp := doJSON(t, s, http.MethodPost, "/api/orders/place", token, gin.H{
		"items":   []gin.H{{"productId": p.ID, "name": "Chips", "quantity": 2}},
		"address": address,
	})
	if code != http.StatusCreated {
		t.Fatalf("place: %d %v", code, resp)
	}
	orderID, _ := resp["orderId"].(string)
	if !strings.HasPrefix(orderID, "TSH") {
		t.Fatalf("order id: %v", resp)
	}
	confirmed := waitFor(t, mailer.confirmations)
	if confirmed.ID != orderID {
		t.Fatalf("confirmation for %q, want %q", confirmed.ID, orderID)
	}

	// stock shortfalls come back aggregated as a 400
	code, resp = doJSON(t, s, http.MethodPost, "/api/orders/place", token, gin.H{
		"items":   []gin.H{{"productId": p.ID, "name": "Chips", "quantity": 10}},
		"address": address,
	})
	if code != http.StatusBadRequest || !strings.Contains(resp["message"].(string), "Only 3 left") {
		t.Fatalf("shortfall: %d %v", code, resp)
	}

	code, resp = doJSON(t, s, http.MethodGet, "/api/orders", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list orders: %d", code)
	}
	orders, _ := resp["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("orders length: %v", resp)
	}
	first, _ := orders[0].(map[string]any)
	if first["orderId"] != orderID || first["status"] != "pending" {
		t.Fatalf("order body: %v", first)
	}
}

func TestPasswordEndpoints(t *testing.T) {
	s, _, mailer := setupServer(t)
	signupAndLogin(t, s, mailer)

	code, resp := doJSON(t, s, http.MethodPost, "/api/password/forgot", "", gin.H{"email": ""})
	if code != http.StatusBadRequest {
		t.Fatalf("empty email: %d", code)
	}

	// known and unknown addresses answer identically
	code, resp = doJSON(t, s, http.MethodPost, "/api/password/forgot", "", gin.H{"email": "asha@example.com"})
	if code != http.StatusOK {
		t.Fatalf("forgot: %d %v", code, resp)
	}
	known := resp["message"]
	code, resp = doJSON(t, s, http.MethodPost, "/api/password/forgot", "", gin.H{"email": "nobody@example.com"})
	if code != http.StatusOK || resp["message"] != known {
		t.Fatalf("unknown email distinguishable: %d %v", code, resp)
	}

	raw := waitFor(t, mailer.resetTokens)

	code, resp = doJSON(t, s, http.MethodPost, "/api/password/verify-token", "", gin.H{"token": raw})
	if code != http.StatusOK || resp["email"] != "asha@example.com" {
		t.Fatalf("verify token: %d %v", code, resp)
	}
	code, resp = doJSON(t, s, http.MethodPost, "/api/password/verify-token", "", gin.H{"token": "bogus"})
	if code != http.StatusBadRequest {
		t.Fatalf("bogus token: %d %v", code, resp)
	}

	code, resp = doJSON(t, s, http.MethodPost, "/api/password/reset", "", gin.H{"token": raw, "newPassword": "brand-new"})
	if code != http.StatusOK {
		t.Fatalf("reset: %d %v", code, resp)
	}

	code, _ = doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "brand-new"})
	if code != http.StatusOK {
		t.Fatalf("login with new password: %d", code)
	}
	code, _ = doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "secret1"})
	if code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", code)
	}

	// the token is spent
	code, _ = doJSON(t, s, http.MethodPost, "/api/password/reset", "", gin.H{"token": raw, "newPassword": "brand-new-2"})
	if code != http.StatusBadRequest {
		t.Fatalf("replay: %d", code)
	}
}
