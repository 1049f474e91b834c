package model

// SoldRecord is a settled sale as stored in the recently-sold collection.
type SoldRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Class        string `json:"class"`
	Image        string `json:"image"`
	BreedCount   int    `json:"breed_count"`
	Timestamp    int64  `json:"timestamp"`
	WithPrice    string `json:"with_price"`
	WithPriceUSD string `json:"with_price_usd"`
}

// RecordID returns the unit identity.
func (s SoldRecord) RecordID() string { return s.ID }
