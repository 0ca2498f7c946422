package inventory

import (
	"errors"
	"time"
)

// Movement records one signed stock change tied to a source document.
// Movements are append-only; cancellations add an opposite movement.
type Movement struct {
	ID          int64     `json:"id"`
	DocType     string    `json:"doc_type"`
	DocID       int64     `json:"doc_id"`
	WarehouseID int64     `json:"warehouse_id"`
	ProductID   int64     `json:"product_id"`
	Qty         float64   `json:"qty"`
	UnitCost    float64   `json:"unit_cost"`
	PostedAt    time.Time `json:"posted_at"`
}

// Balance summarises stock per warehouse and product with a moving-average
// unit cost.
type Balance struct {
	WarehouseID int64     `json:"warehouse_id"`
	ProductID   int64     `json:"product_id"`
	Qty         float64   `json:"qty"`
	AvgCost     float64   `json:"avg_cost"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	// ErrInsufficientStock triggered when a movement would drive quantity negative.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive movement quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost cannot be negative")
)
