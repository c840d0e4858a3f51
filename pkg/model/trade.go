package model

// TradeLeg is one side's view of a match: the order that traded, the
// price it rests at and the quantity executed against it.
type TradeLeg struct {
	OrderID  string `json:"order_id"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Trade is the immutable record of one match event, expressed as a
// paired bid and ask leg. Each leg reports its own resting price, so
// the two legs of a trade may carry different prices.
type Trade struct {
	Bid TradeLeg `json:"bid"`
	Ask TradeLeg `json:"ask"`
}

// LevelInfo is the aggregate resting quantity at one price.
type LevelInfo struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

// BookLevels is a read-only per-side aggregation of resting quantity,
// bids best (highest) first, asks best (lowest) first.
type BookLevels struct {
	Bids []LevelInfo `json:"bids"`
	Asks []LevelInfo `json:"asks"`
}
