package models

import "gorm.io/gorm"

// OrderRecord is one row of the order audit journal: a sizing outcome,
// whether the order was published or dropped, and why.
type OrderRecord struct {
	gorm.Model
	Symbol       string  `json:"symbol"`
	Direct       string  `json:"direct"`
	Price        float64 `json:"price"`
	RequestedQty int64   `json:"requested_qty"`
	FinalQty     int64   `json:"final_qty"`
	OrderType    string  `json:"order_type"`
	Status       string  `json:"status"` // "SUBMIT" or "DROP"
	Reason       string  `json:"reason,omitempty"`
}
