package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tuckshop/internal/domain"
	"tuckshop/internal/notify"
	"tuckshop/internal/repository"
)

// Customer is the authenticated identity an order is placed for,
// extracted from the session token.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// CartItem is one client-held cart line. Name is only used for error
// messages; the live product is looked up by id.
type CartItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

// OrderService implements checkout: stock verification, live price
// capture, per-line stock decrement, order persistence and a detached
// confirmation mail.
//
// The flow is deliberately not wrapped in a single multi-row
// transaction: a crash between decrements can leave stock reduced with
// no order recorded, and two concurrent checkouts can both pass
// verification for the last unit. With strictStock enabled each line
// uses a conditional decrement-if-sufficient instead, which closes the
// per-line race but not the cross-line window.
type OrderService struct {
	products    repository.ProductRepository
	orders      repository.OrderRepository
	mailer      notify.Mailer
	log         zerolog.Logger
	strictStock bool
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, mailer notify.Mailer, log zerolog.Logger, strictStock bool) *OrderService {
	return &OrderService{products: products, orders: orders, mailer: mailer, log: log, strictStock: strictStock}
}

func validAddress(a domain.Address) bool {
	return a.FullName != "" && a.PhoneNumber != "" && a.AddressLine1 != "" &&
		a.City != "" && a.State != "" && a.Pincode != ""
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newOrderID builds a human-readable id: TSH + last 6 digits of the
// current millisecond timestamp + 5 random base-36 characters. There is
// no collision-retry loop; the store's UNIQUE constraint is the only
// backstop and a collision surfaces as an insert failure.
func newOrderID() string {
	ms := strconv.FormatInt(time.Now().UnixMilli(), 10)
	b := make([]byte, 5)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return "TSH" + ms[len(ms)-6:] + string(b)
}

// Place runs the checkout flow and returns the generated order id.
func (s *OrderService) Place(ctx context.Context, customer Customer, items []CartItem, address domain.Address) (string, error) {
	if customer.ID == "" || customer.Name == "" || customer.Email == "" {
		return "", Unauthorized("Authentication error: User details not found in token")
	}
	if len(items) == 0 {
		return "", Invalid("Order items are required")
	}
	if !validAddress(address) {
		return "", Invalid("Complete delivery address is required")
	}
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return "", Invalid("Order items are invalid")
		}
	}

	// Verification pass: read-only. Prices are taken from the live
	// product, never from the client, and every problem line is
	// collected before the whole order is rejected.
	var total float64
	stockErrors := make([]string, 0)
	lines := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				stockErrors = append(stockErrors, fmt.Sprintf("Product %q not found", it.Name))
				continue
			}
			return "", err
		}
		if p.Quantity < it.Quantity {
			stockErrors = append(stockErrors, fmt.Sprintf("%s: Only %d left", p.Name, p.Quantity))
			continue
		}
		total += p.Price * float64(it.Quantity)
		lines = append(lines, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}
	if len(stockErrors) > 0 {
		return "", Invalid("Stock unavailable: " + strings.Join(stockErrors, "; "))
	}

	// Decrement pass, line by line.
	for _, line := range lines {
		var err error
		if s.strictStock {
			err = s.products.DecrementStockGuarded(ctx, line.ProductID, line.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return "", Invalid(fmt.Sprintf("Stock unavailable: %s was bought out", line.Name))
			}
		} else {
			err = s.products.DecrementStock(ctx, line.ProductID, line.Quantity)
		}
		if err != nil {
			return "", err
		}
	}

	order := domain.Order{
		ID:        newOrderID(),
		UserID:    customer.ID,
		UserName:  customer.Name,
		UserEmail: customer.Email,
		Items:     lines,
		Total:     total,
		Address:   address,
		Status:    domain.OrderStatusPending,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return "", err
	}

	user := domain.User{Name: customer.Name, Email: customer.Email}
	confirmed := order
	go func() {
		if err := s.mailer.SendOrderConfirmation(context.Background(), user, confirmed); err != nil {
			s.log.Error().Err(err).Str("order_id", confirmed.ID).Msg("order confirmation email failed")
		}
	}()

	return order.ID, nil
}

// ListOrders returns the caller's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, Unauthorized("Authentication error")
	}
	return s.orders.ListByUser(ctx, userID)
}
