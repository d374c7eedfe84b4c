package models

import "time"

// SearchResult is one row of the quicksearch response. Produced per search
// call, never persisted.
type SearchResult struct {
	Title    string
	URL      string
	Platform string
	Year     string
	Price    float64
	ImageURL string
	InStock  bool
}

// GamePrice is the snapshot produced by one aggregation run over a game
// page. A zero price means the corresponding category had no usable offer.
type GamePrice struct {
	GameName string
	PageURL  string

	// Best overall offer (keys preferred over accounts).
	Price  float64
	Seller string
	URL    string

	// Best key offer.
	KeyPrice      float64
	KeySeller     string
	KeyURL        string
	KeyIsOfficial bool

	// Best account offer.
	AccountPrice  float64
	AccountSeller string
	AccountURL    string

	Offers      []Offer
	RetrievedAt time.Time
	Available   bool
}
