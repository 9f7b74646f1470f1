// Package repotest provides an in-memory repository.Store for tests.
//
// Transactions are serialised: ExecTx holds a store-wide mutex for the whole
// callback, which models the row locks the Postgres queries take. A callback
// that returns an error rolls every change back.
package repotest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ErrCheckViolation stands in for a Postgres CHECK constraint failure.
var ErrCheckViolation = errors.New("repotest: check constraint violated")

type key = [16]byte

type state struct {
	products   map[key]repository.Product
	variants   map[key]repository.ProductVariant
	carts      map[key]repository.Cart
	cartItems  map[key]repository.CartItem
	addresses  map[key]repository.Address
	orders     map[key]repository.Order
	orderItems map[key]repository.OrderItem
	payments   map[key]repository.Payment
	jobs       map[key]repository.Job
}

func newState() *state {
	return &state{
		products:   map[key]repository.Product{},
		variants:   map[key]repository.ProductVariant{},
		carts:      map[key]repository.Cart{},
		cartItems:  map[key]repository.CartItem{},
		addresses:  map[key]repository.Address{},
		orders:     map[key]repository.Order{},
		orderItems: map[key]repository.OrderItem{},
		payments:   map[key]repository.Payment{},
		jobs:       map[key]repository.Job{},
	}
}

func cloneMap[V any](m map[key]V) map[key]V {
	out := make(map[key]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		products:   cloneMap(s.products),
		variants:   cloneMap(s.variants),
		carts:      cloneMap(s.carts),
		cartItems:  cloneMap(s.cartItems),
		addresses:  cloneMap(s.addresses),
		orders:     cloneMap(s.orders),
		orderItems: cloneMap(s.orderItems),
		payments:   cloneMap(s.payments),
		jobs:       cloneMap(s.jobs),
	}
}

// Store is an in-memory repository.Store.
type Store struct {
	*Querier

	mu       sync.Mutex
	data     *state
	last     time.Time
	failures map[string]error

	Commits   int
	Rollbacks int
	// LockLog records the id order of every LockVariantsForUpdate call.
	LockLog [][]pgtype.UUID
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	s := &Store{
		data:     newState(),
		failures: map[string]error{},
	}
	s.Querier = &Querier{s: s}
	return s
}

// Fail makes every later call to method return err. A nil err clears it.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&Querier{s: s, tx: true}); err != nil {
		s.data = snapshot
		s.Rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		s.Rollbacks++
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.Commits++
	return nil
}

// now returns a strictly increasing timestamp so insertion order is stable.
func (s *Store) now() time.Time {
	t := time.Now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) ts() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: s.now(), Valid: true}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func before(a, b pgtype.Timestamptz) bool {
	return a.Time.Before(b.Time)
}

func sortByCreated[T any](items []T, created func(T) pgtype.Timestamptz) {
	sort.SliceStable(items, func(i, j int) bool {
		return before(created(items[i]), created(items[j]))
	})
}

func compareIDs(a, b pgtype.UUID) int {
	return bytes.Compare(a.Bytes[:], b.Bytes[:])
}

// Querier implements repository.Querier over the store's state. Outside a
// transaction each call takes the store mutex itself.
type Querier struct {
	s  *Store
	tx bool
}

var _ repository.Querier = (*Querier)(nil)

func (q *Querier) guard(method string) (func(), error) {
	unlock := func() {}
	if !q.tx {
		q.s.mu.Lock()
		unlock = q.s.mu.Unlock
	}
	if err, ok := q.s.failures[method]; ok {
		return unlock, err
	}
	return unlock, nil
}

func (q *Querier) st() *state { return q.s.data }

var errNoRows = pgx.ErrNoRows

// ---------------------------------------------------------------------------
// Seeding and inspection helpers
// ---------------------------------------------------------------------------

// AddProduct inserts an active product priced at price.
func (s *Store) AddProduct(name, price string) repository.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := repository.Product{
		ID:        newID(),
		Name:      name,
		Slug:      name,
		Price:     decimal.RequireFromString(price),
		IsActive:  true,
		CreatedAt: s.ts(),
	}
	p.UpdatedAt = p.CreatedAt
	s.data.products[p.ID.Bytes] = p
	return p
}

// AddVariant inserts an active variant of product holding stock units.
func (s *Store) AddVariant(product repository.Product, sku, size, color string, stock int) repository.ProductVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := repository.ProductVariant{
		ID:            newID(),
		ProductID:     product.ID,
		Sku:           sku,
		Size:          size,
		Color:         color,
		StockQuantity: int32(stock),
		IsActive:      true,
		CreatedAt:     s.ts(),
	}
	v.UpdatedAt = v.CreatedAt
	s.data.variants[v.ID.Bytes] = v
	return v
}

// SetProductPrice changes a product's live price.
func (s *Store) SetProductPrice(productID pgtype.UUID, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.products[productID.Bytes]
	p.Price = decimal.RequireFromString(price)
	s.data.products[productID.Bytes] = p
}

// SetVariantActive toggles a variant.
func (s *Store) SetVariantActive(variantID pgtype.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.data.variants[variantID.Bytes]
	v.IsActive = active
	s.data.variants[variantID.Bytes] = v
}

// StockOf returns a variant's current stock.
func (s *Store) StockOf(variantID pgtype.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.data.variants[variantID.Bytes].StockQuantity)
}

// SetStock overwrites a variant's stock without going through a query.
func (s *Store) SetStock(variantID pgtype.UUID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.data.variants[variantID.Bytes]
	v.StockQuantity = int32(stock)
	s.data.variants[variantID.Bytes] = v
}

// Orders returns every order in creation order.
func (s *Store) Orders() []repository.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Order, 0, len(s.data.orders))
	for _, o := range s.data.orders {
		out = append(out, o)
	}
	sortByCreated(out, func(o repository.Order) pgtype.Timestamptz { return o.CreatedAt })
	return out
}

// OrderItemCount returns the number of order item rows.
func (s *Store) OrderItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orderItems)
}

// PaymentCount returns the number of payment rows.
func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.payments)
}

// Jobs returns every job in creation order.
func (s *Store) Jobs() []repository.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Job, 0, len(s.data.jobs))
	for _, j := range s.data.jobs {
		out = append(out, j)
	}
	sortByCreated(out, func(j repository.Job) pgtype.Timestamptz { return j.CreatedAt })
	return out
}

// Cart returns a cart by id.
func (s *Store) Cart(id pgtype.UUID) (repository.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.carts[id.Bytes]
	return c, ok
}

// AddressCount returns the number of address rows, saved and snapshot.
func (s *Store) AddressCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.addresses)
}
