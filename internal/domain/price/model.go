package price

import "time"

// Snapshot is the latest known price for one tracked asset. At most one
// live snapshot exists per asset id; a refresh replaces, never appends.
type Snapshot struct {
	AssetID   string    `json:"assetId"`
	PriceUSD  float64   `json:"usd"`
	Change24h float64   `json:"usd24hChange"`
	UpdatedAt time.Time `json:"updatedAt"`
}
