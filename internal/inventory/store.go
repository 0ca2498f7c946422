package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxStore exposes the stock operations that run inside a posting transaction.
// Receive increases stock at the location and folds the cost into the moving
// average; Consume decreases stock and reports the average cost consumed.
type TxStore interface {
	Receive(ctx context.Context, move Movement) error
	Consume(ctx context.Context, move Movement) (unitCost float64, err error)
}

// Store persists stock balances and movements.
type Store struct {
	pool     *pgxpool.Pool
	allowNeg bool
}

// NewStore constructs Store. allowNegative permits stock to go below zero,
// for sites that post sales before receipts are captured.
func NewStore(pool *pgxpool.Pool, allowNegative bool) *Store {
	return &Store{pool: pool, allowNeg: allowNegative}
}

type txStore struct {
	tx       pgx.Tx
	allowNeg bool
}

// NewTxStore wraps an open transaction with stock operations.
func (s *Store) NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx, allowNeg: s.allowNeg}
}

func (s *txStore) lockBalance(ctx context.Context, warehouseID, productID int64) (Balance, bool, error) {
	var bal Balance
	err := s.tx.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM stock_balances WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, warehouseID, productID).
		Scan(&bal.WarehouseID, &bal.ProductID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{WarehouseID: warehouseID, ProductID: productID}, false, nil
		}
		return Balance{}, false, err
	}
	return bal, true, nil
}

func (s *txStore) saveBalance(ctx context.Context, bal Balance, exists bool) error {
	if exists {
		_, err := s.tx.Exec(ctx, `UPDATE stock_balances SET qty=$3, avg_cost=$4, updated_at=NOW()
WHERE warehouse_id=$1 AND product_id=$2`, bal.WarehouseID, bal.ProductID, bal.Qty, bal.AvgCost)
		return err
	}
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_balances (warehouse_id, product_id, qty, avg_cost)
VALUES ($1,$2,$3,$4)`, bal.WarehouseID, bal.ProductID, bal.Qty, bal.AvgCost)
	return err
}

func (s *txStore) insertMovement(ctx context.Context, move Movement) error {
	if move.PostedAt.IsZero() {
		move.PostedAt = time.Now()
	}
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_movements (doc_type, doc_id, warehouse_id, product_id, qty, unit_cost, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		move.DocType, move.DocID, move.WarehouseID, move.ProductID, move.Qty, move.UnitCost, move.PostedAt)
	return err
}

// Receive adds stock and recomputes the moving-average cost.
func (s *txStore) Receive(ctx context.Context, move Movement) error {
	if move.Qty <= 0 {
		return ErrInvalidQuantity
	}
	if move.UnitCost < 0 {
		return ErrInvalidUnitCost
	}
	bal, exists, err := s.lockBalance(ctx, move.WarehouseID, move.ProductID)
	if err != nil {
		return err
	}
	newQty := bal.Qty + move.Qty
	if newQty > 0 {
		held := bal.Qty
		if held < 0 {
			held = 0
		}
		bal.AvgCost = (held*bal.AvgCost + move.Qty*move.UnitCost) / (held + move.Qty)
	} else {
		bal.AvgCost = move.UnitCost
	}
	bal.Qty = newQty
	if err := s.saveBalance(ctx, bal, exists); err != nil {
		return err
	}
	return s.insertMovement(ctx, move)
}

// Consume removes stock and returns the moving-average unit cost, the basis
// for cost of goods sold.
func (s *txStore) Consume(ctx context.Context, move Movement) (float64, error) {
	if move.Qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	bal, exists, err := s.lockBalance(ctx, move.WarehouseID, move.ProductID)
	if err != nil {
		return 0, err
	}
	if bal.Qty-move.Qty < 0 && !s.allowNeg {
		return 0, ErrInsufficientStock
	}
	bal.Qty -= move.Qty
	if err := s.saveBalance(ctx, bal, exists); err != nil {
		return 0, err
	}
	move.Qty = -move.Qty
	move.UnitCost = bal.AvgCost
	if err := s.insertMovement(ctx, move); err != nil {
		return 0, err
	}
	return bal.AvgCost, nil
}

// GetBalance reads the stock position for a product at one location.
func (s *Store) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	var bal Balance
	err := s.pool.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM stock_balances WHERE warehouse_id=$1 AND product_id=$2`, warehouseID, productID).
		Scan(&bal.WarehouseID, &bal.ProductID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{WarehouseID: warehouseID, ProductID: productID}, nil
		}
		return Balance{}, err
	}
	return bal, nil
}

// ListMovements returns the movement trail for a document.
func (s *Store) ListMovements(ctx context.Context, docType string, docID int64) ([]Movement, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, doc_type, doc_id, warehouse_id, product_id, qty, unit_cost, posted_at
FROM stock_movements WHERE doc_type=$1 AND doc_id=$2 ORDER BY id`, docType, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var moves []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.DocType, &m.DocID, &m.WarehouseID, &m.ProductID, &m.Qty, &m.UnitCost, &m.PostedAt); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
