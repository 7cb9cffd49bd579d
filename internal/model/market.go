package model

import "time"

// Market is a read-model row for an active market, carrying the current and
// previous observation so change percentages can be derived per cycle.
type Market struct {
	Symbol     string    `gorm:"column:symbol;primaryKey" json:"symbol"`
	AssetClass string    `gorm:"column:asset_class" json:"asset_class"`
	Price      float64   `gorm:"column:price;type:Float64" json:"price"`
	PrevPrice  float64   `gorm:"column:prev_price;type:Float64" json:"prev_price"`
	Volume     float64   `gorm:"column:volume;type:Float64" json:"volume"`
	PrevVolume float64   `gorm:"column:prev_volume;type:Float64" json:"prev_volume"`
	Active     bool      `gorm:"column:active" json:"active"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Market) TableName() string {
	return "market"
}

// Trade is a single executed trade, owned by the external store.
type Trade struct {
	TradeID   string    `gorm:"column:trade_id;primaryKey" json:"trade_id"`
	UserID    string    `gorm:"column:user_id" json:"user_id"`
	Symbol    string    `gorm:"column:symbol" json:"symbol"`
	Side      string    `gorm:"column:side" json:"side"`
	Price     float64   `gorm:"column:price;type:Float64" json:"price"`
	Amount    float64   `gorm:"column:amount;type:Float64" json:"amount"`
	PnL       float64   `gorm:"column:pnl;type:Float64" json:"pnl"`
	EventTime time.Time `gorm:"column:event_time" json:"event_time"`
}

func (Trade) TableName() string {
	return "trade"
}

// PricePoint is one observation in a market's price history.
type PricePoint struct {
	Symbol    string    `gorm:"column:symbol" json:"symbol"`
	Price     float64   `gorm:"column:price;type:Float64" json:"price"`
	EventTime time.Time `gorm:"column:event_time" json:"event_time"`
}

func (PricePoint) TableName() string {
	return "price_history"
}

// Position is an open position held by a user.
type Position struct {
	PositionID string    `gorm:"column:position_id;primaryKey" json:"position_id"`
	UserID     string    `gorm:"column:user_id" json:"user_id"`
	Symbol     string    `gorm:"column:symbol" json:"symbol"`
	Side       string    `gorm:"column:side" json:"side"`
	Size       float64   `gorm:"column:size;type:Float64" json:"size"`
	EntryPrice float64   `gorm:"column:entry_price;type:Float64" json:"entry_price"`
	OpenedAt   time.Time `gorm:"column:opened_at" json:"opened_at"`
}

func (Position) TableName() string {
	return "position"
}
