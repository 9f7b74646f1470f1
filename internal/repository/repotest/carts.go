package repotest

import (
	"context"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Querier) activeCart(match func(repository.Cart) bool) (repository.Cart, bool) {
	for _, c := range q.st().carts {
		if c.Status == "active" && match(c) {
			return c, true
		}
	}
	return repository.Cart{}, false
}

func (q *Querier) GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (repository.Cart, error) {
	unlock, err := q.guard("GetActiveCartByUser")
	defer unlock()
	if err != nil {
		return repository.Cart{}, err
	}
	c, ok := q.activeCart(func(c repository.Cart) bool { return c.UserID.Valid && c.UserID.Bytes == userID.Bytes })
	if !ok {
		return repository.Cart{}, errNoRows
	}
	return c, nil
}

func (q *Querier) GetActiveCartBySession(ctx context.Context, sessionKey string) (repository.Cart, error) {
	unlock, err := q.guard("GetActiveCartBySession")
	defer unlock()
	if err != nil {
		return repository.Cart{}, err
	}
	c, ok := q.activeCart(func(c repository.Cart) bool { return c.SessionKey.Valid && c.SessionKey.String == sessionKey })
	if !ok {
		return repository.Cart{}, errNoRows
	}
	return c, nil
}

func (q *Querier) insertCart(c repository.Cart) repository.Cart {
	c.ID = newID()
	c.Status = "active"
	c.CreatedAt = q.s.ts()
	c.UpdatedAt = c.CreatedAt
	q.st().carts[c.ID.Bytes] = c
	return c
}

func (q *Querier) CreateUserCart(ctx context.Context, userID pgtype.UUID) (repository.Cart, error) {
	unlock, err := q.guard("CreateUserCart")
	defer unlock()
	if err != nil {
		return repository.Cart{}, err
	}
	if _, ok := q.activeCart(func(c repository.Cart) bool { return c.UserID.Valid && c.UserID.Bytes == userID.Bytes }); ok {
		return repository.Cart{}, errNoRows
	}
	return q.insertCart(repository.Cart{UserID: userID}), nil
}

func (q *Querier) CreateSessionCart(ctx context.Context, sessionKey string) (repository.Cart, error) {
	unlock, err := q.guard("CreateSessionCart")
	defer unlock()
	if err != nil {
		return repository.Cart{}, err
	}
	if _, ok := q.activeCart(func(c repository.Cart) bool { return c.SessionKey.Valid && c.SessionKey.String == sessionKey }); ok {
		return repository.Cart{}, errNoRows
	}
	return q.insertCart(repository.Cart{SessionKey: text(sessionKey)}), nil
}

func (q *Querier) LockCart(ctx context.Context, id pgtype.UUID) (repository.Cart, error) {
	unlock, err := q.guard("LockCart")
	defer unlock()
	if err != nil {
		return repository.Cart{}, err
	}
	c, ok := q.st().carts[id.Bytes]
	if !ok {
		return repository.Cart{}, errNoRows
	}
	return c, nil
}

func (q *Querier) UpdateCartStatus(ctx context.Context, arg repository.UpdateCartStatusParams) error {
	unlock, err := q.guard("UpdateCartStatus")
	defer unlock()
	if err != nil {
		return err
	}
	c, ok := q.st().carts[arg.ID.Bytes]
	if !ok {
		return nil
	}
	c.Status = arg.Status
	c.UpdatedAt = q.s.ts()
	q.st().carts[arg.ID.Bytes] = c
	return nil
}

func (q *Querier) itemsOf(cartID pgtype.UUID) []repository.CartItem {
	var items []repository.CartItem
	for _, ci := range q.st().cartItems {
		if ci.CartID.Bytes == cartID.Bytes {
			items = append(items, ci)
		}
	}
	sortByCreated(items, func(ci repository.CartItem) pgtype.Timestamptz { return ci.CreatedAt })
	return items
}

func (q *Querier) ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]repository.CartLine, error) {
	unlock, err := q.guard("ListCartLines")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var lines []repository.CartLine
	for _, ci := range q.itemsOf(cartID) {
		v := q.st().variants[ci.VariantID.Bytes]
		p := q.st().products[v.ProductID.Bytes]
		lines = append(lines, repository.CartLine{
			VariantID:   ci.VariantID,
			Quantity:    ci.Quantity,
			UnitPrice:   ci.UnitPrice,
			Sku:         v.Sku,
			Size:        v.Size,
			Color:       v.Color,
			ProductName: p.Name,
		})
	}
	return lines, nil
}

func (q *Querier) findItem(cartID, variantID pgtype.UUID) (repository.CartItem, bool) {
	for _, ci := range q.st().cartItems {
		if ci.CartID.Bytes == cartID.Bytes && ci.VariantID.Bytes == variantID.Bytes {
			return ci, true
		}
	}
	return repository.CartItem{}, false
}

func (q *Querier) GetCartItem(ctx context.Context, arg repository.GetCartItemParams) (repository.CartItem, error) {
	unlock, err := q.guard("GetCartItem")
	defer unlock()
	if err != nil {
		return repository.CartItem{}, err
	}
	ci, ok := q.findItem(arg.CartID, arg.VariantID)
	if !ok {
		return repository.CartItem{}, errNoRows
	}
	return ci, nil
}

func (q *Querier) UpsertCartItem(ctx context.Context, arg repository.UpsertCartItemParams) (repository.CartItem, error) {
	unlock, err := q.guard("UpsertCartItem")
	defer unlock()
	if err != nil {
		return repository.CartItem{}, err
	}
	if arg.Quantity < 1 {
		return repository.CartItem{}, ErrCheckViolation
	}
	if _, ok := q.st().variants[arg.VariantID.Bytes]; !ok {
		return repository.CartItem{}, ErrCheckViolation
	}
	ci, ok := q.findItem(arg.CartID, arg.VariantID)
	if !ok {
		ci = repository.CartItem{
			ID:        newID(),
			CartID:    arg.CartID,
			VariantID: arg.VariantID,
			CreatedAt: q.s.ts(),
		}
	}
	ci.Quantity = arg.Quantity
	ci.UnitPrice = arg.UnitPrice
	ci.UpdatedAt = q.s.ts()
	q.st().cartItems[ci.ID.Bytes] = ci
	return ci, nil
}

func (q *Querier) DeleteCartItem(ctx context.Context, arg repository.DeleteCartItemParams) (int64, error) {
	unlock, err := q.guard("DeleteCartItem")
	defer unlock()
	if err != nil {
		return 0, err
	}
	ci, ok := q.findItem(arg.CartID, arg.VariantID)
	if !ok {
		return 0, nil
	}
	delete(q.st().cartItems, ci.ID.Bytes)
	return 1, nil
}

func (q *Querier) DeleteCartItems(ctx context.Context, cartID pgtype.UUID) error {
	unlock, err := q.guard("DeleteCartItems")
	defer unlock()
	if err != nil {
		return err
	}
	for _, ci := range q.itemsOf(cartID) {
		delete(q.st().cartItems, ci.ID.Bytes)
	}
	return nil
}
