package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tuckshop/internal/domain"
	"tuckshop/internal/repository"
)

var testAddress = domain.Address{
	FullName:     "Asha Rao",
	PhoneNumber:  "9876543210",
	AddressLine1: "Hostel Block C",
	City:         "Pune",
	State:        "MH",
	Pincode:      "411001",
}

var testCustomer = Customer{ID: "u1", Name: "Asha", Email: "asha@example.com"}

func setupOrders(t *testing.T, strict bool) (*OrderService, *repository.MemoryStore, *fakeMailer) {
	t.Helper()
	store := repository.NewMemoryStore()
	mailer := newFakeMailer()
	svc := NewOrderService(store, repository.NewMemoryOrders(store), mailer, zerolog.Nop(), strict)
	return svc, store, mailer
}

func seed(t *testing.T, store *repository.MemoryStore, name string, price float64, qty int64) *domain.Product {
	t.Helper()
	p := domain.Product{Name: name, Price: price, Quantity: qty, ImageURL: "x", Category: domain.CategorySnacks}
	if err := store.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return &p
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	svc, store, mailer := setupOrders(t, false)
	p1 := seed(t, store, "Chips", 2.5, 5)
	p2 := seed(t, store, "Cola", 1.25, 2)

	orderID, err := svc.Place(ctx, testCustomer, []CartItem{
		{ProductID: p1.ID, Name: "Chips", Quantity: 3},
		{ProductID: p2.ID, Name: "Cola", Quantity: 2},
	}, testAddress)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !strings.HasPrefix(orderID, "TSH") || len(orderID) != 14 {
		t.Fatalf("bad order id %q", orderID)
	}

	// stock decremented
	p1After, _ := store.GetByID(ctx, p1.ID)
	p2After, _ := store.GetByID(ctx, p2.ID)
	if p1After.Quantity != 2 || p2After.Quantity != 0 {
		t.Fatalf("stock not decreased: %v %v", p1After.Quantity, p2After.Quantity)
	}

	orders, err := svc.ListOrders(ctx, testCustomer.ID)
	if err != nil || len(orders) != 1 {
		t.Fatalf("list: %v (%d)", err, len(orders))
	}
	o := orders[0]
	if o.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %v", o.Status)
	}
	if o.UserID != "u1" || o.UserName != "Asha" || o.UserEmail != "asha@example.com" {
		t.Fatalf("denormalized user fields wrong: %+v", o)
	}

	// total equals the sum of line subtotals at live prices
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	if o.Total != sum || o.Total != 2.5*3+1.25*2 {
		t.Fatalf("total %v, sum %v", o.Total, sum)
	}

	confirmed := recv(t, mailer.confirmations)
	if confirmed.ID != orderID {
		t.Fatalf("confirmation for %q, want %q", confirmed.ID, orderID)
	}
}

func TestPlaceOrder_LivePriceWins(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setupOrders(t, false)
	p := seed(t, store, "Chips", 2.5, 5)

	// price changes after the client built its cart
	newPrice := 4.0
	if _, err := store.UpdateByName(ctx, "Chips", repository.ProductPatch{Price: &newPrice}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Place(ctx, testCustomer, []CartItem{{ProductID: p.ID, Name: "Chips", Quantity: 1}}, testAddress); err != nil {
		t.Fatalf("place: %v", err)
	}
	orders, _ := svc.ListOrders(ctx, testCustomer.ID)
	if orders[0].Items[0].Price != 4.0 || orders[0].Total != 4.0 {
		t.Fatalf("client price used instead of live price: %+v", orders[0])
	}
}

func TestPlaceOrder_AggregatedStockErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setupOrders(t, false)
	p := seed(t, store, "Chips", 2.5, 1)

	_, err := svc.Place(ctx, testCustomer, []CartItem{
		{ProductID: p.ID, Name: "Chips", Quantity: 3},
		{ProductID: 999, Name: "Ghost", Quantity: 1},
	}, testAddress)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(e.Message, "Chips: Only 1 left") || !strings.Contains(e.Message, `"Ghost" not found`) {
		t.Fatalf("errors not aggregated: %q", e.Message)
	}

	// nothing mutated, no order created
	pAfter, _ := store.GetByID(ctx, p.ID)
	if pAfter.Quantity != 1 {
		t.Fatalf("stock mutated on failed order")
	}
	orders, _ := svc.ListOrders(ctx, testCustomer.ID)
	if len(orders) != 0 {
		t.Fatalf("partial order created")
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setupOrders(t, false)
	p := seed(t, store, "Chips", 2.5, 5)
	items := []CartItem{{ProductID: p.ID, Name: "Chips", Quantity: 1}}

	if _, err := svc.Place(ctx, testCustomer, nil, testAddress); err == nil {
		t.Fatalf("expected error for empty cart")
	}
	incomplete := testAddress
	incomplete.Pincode = ""
	if _, err := svc.Place(ctx, testCustomer, items, incomplete); err == nil {
		t.Fatalf("expected error for incomplete address")
	}
	if _, err := svc.Place(ctx, Customer{}, items, testAddress); err == nil {
		t.Fatalf("expected error for missing identity")
	}
}

// Documents the known oversell race of the baseline design: both
// checkouts can pass verification before either decrements, so the last
// unit can be sold twice and stock goes negative.
func TestPlaceOrder_OversellRaceBaseline(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setupOrders(t, false)
	p := seed(t, store, "Chips", 2.5, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, testCustomer, []CartItem{{ProductID: p.ID, Name: "Chips", Quantity: 1}}, testAddress)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes < 1 {
		t.Fatalf("expected at least one order to succeed")
	}
	pAfter, _ := store.GetByID(ctx, p.ID)
	if successes == 2 && pAfter.Quantity != -1 {
		t.Fatalf("double sale without negative stock: %v", pAfter.Quantity)
	}
}

func TestPlaceOrder_StrictStockClosesPerLineRace(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setupOrders(t, true)
	p := seed(t, store, "Chips", 2.5, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, testCustomer, []CartItem{{ProductID: p.ID, Name: "Chips", Quantity: 1}}, testAddress)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	pAfter, _ := store.GetByID(ctx, p.ID)
	if pAfter.Quantity != 0 {
		t.Fatalf("stock expected 0, got %v", pAfter.Quantity)
	}
}
