package universe

import "context"

// BondRepositoryInterface defines the contract for analytics universe storage
// Used by the match service and handlers to enable testing with mocks
type BondRepositoryInterface interface {
	Upsert(bonds []Bond) (int, error)
	ReplaceAll(bonds []Bond) (int, error)
	GetByISIN(isin string) (*Bond, error)
	ListAll() ([]Bond, error)
	ListByISINs(isins []string) ([]Bond, error)
	Search(filter SearchFilter) ([]Bond, error)
	Count() (int, error)
	DeleteMatured(beforeYear int) (int64, error)
}

// PortfolioRepositoryInterface defines the contract for holdings and watchlist storage
type PortfolioRepositoryInterface interface {
	SetHolding(portfolioID, isin string, parAmount float64) error
	RemoveHolding(portfolioID, isin string) error
	ListHoldings(portfolioID string) ([]Holding, error)
	ListHoldingISINs(portfolioID string) ([]string, error)

	AddToWatchlist(portfolioID, isin string) error
	RemoveFromWatchlist(portfolioID, isin string) error
	ListWatchlist(portfolioID string) ([]WatchlistEntry, error)
	ListWatchlistISINs(portfolioID string) ([]string, error)
}

// ObjectFetcher downloads a whole object from remote storage.
// Implemented by reliability.R2Client.
type ObjectFetcher interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Compile-time checks
var (
	_ BondRepositoryInterface      = (*BondRepository)(nil)
	_ PortfolioRepositoryInterface = (*PortfolioRepository)(nil)
)
