package bondmatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/orca/internal/matching"
	"github.com/aristath/orca/internal/modules/universe"
	"github.com/aristath/orca/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxTopN caps how many matches a single request may ask for.
const MaxTopN = 50

// AuditRepositoryInterface defines the contract for the match request ledger
type AuditRepositoryInterface interface {
	Record(entry AuditEntry) error
	ListRecent(portfolioID string, limit int) ([]AuditEntry, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

var _ AuditRepositoryInterface = (*AuditRepository)(nil)

// Service resolves bond match requests. Candidate pools are read from storage on
// every request.
type Service struct {
	bondRepo      universe.BondRepositoryInterface
	portfolioRepo universe.PortfolioRepositoryInterface
	auditRepo     AuditRepositoryInterface
	log           zerolog.Logger
	now           func() time.Time
	newID         func() string
}

// NewService creates a new bond match service
func NewService(
	bondRepo universe.BondRepositoryInterface,
	portfolioRepo universe.PortfolioRepositoryInterface,
	auditRepo AuditRepositoryInterface,
	log zerolog.Logger,
) *Service {
	return &Service{
		bondRepo:      bondRepo,
		portfolioRepo: portfolioRepo,
		auditRepo:     auditRepo,
		log:           log.With().Str("service", "bond_match").Logger(),
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// Match resolves req.Query against the pool named by req.Source
func (s *Service) Match(ctx context.Context, req Request) (*Response, error) {
	defer utils.OperationTimer("bond_match", s.log)()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	source := Source(strings.ToLower(strings.TrimSpace(string(req.Source))))
	if source == "" {
		source = SourceAnalytics
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
	}

	topN := req.TopN
	if topN <= 0 {
		topN = matching.DefaultTopN
	}
	if topN > MaxTopN {
		topN = MaxTopN
	}

	portfolioID := strings.TrimSpace(req.PortfolioID)
	if portfolioID == "" {
		portfolioID = universe.DefaultPortfolioID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool, err := s.resolvePool(source, portfolioID, req.Bonds)
	if err != nil {
		return nil, err
	}

	matcher := matching.NewMatcherFromCandidates(pool, matching.WithLogger(s.log), matching.WithClock(s.now))
	result := matcher.MatchWithIntent(query, topN)

	resp := &Response{
		RequestID:          s.newID(),
		Intent:             result.Intent,
		Matches:            result.Matches,
		ConfidentMatch:     result.ConfidentMatch,
		Source:             source,
		TotalBondsSearched: matcher.Size(),
		Display:            result.Display(),
	}

	s.record(resp, portfolioID)

	s.log.Info().
		Str("request_id", resp.RequestID).
		Str("source", string(source)).
		Str("action", string(resp.Intent.Action)).
		Int("pool", resp.TotalBondsSearched).
		Int("matches", len(resp.Matches)).
		Bool("confident", resp.ConfidentMatch != nil).
		Msg("Bond match resolved")

	return resp, nil
}

// ParseIntent parses text as a trade command without matching it
func (s *Service) ParseIntent(text string) matching.Intent {
	return matching.ParseTradeIntent(text)
}

// Countries returns the canonical country names the matcher recognises
func (s *Service) Countries() []string {
	return matching.KnownCountries()
}

// History returns recent match requests, newest first
func (s *Service) History(portfolioID string, limit int) ([]AuditEntry, error) {
	return s.auditRepo.ListRecent(strings.TrimSpace(portfolioID), limit)
}

func (s *Service) resolvePool(source Source, portfolioID string, custom []matching.CandidateRecord) ([]matching.Candidate, error) {
	var (
		bonds []universe.Bond
		err   error
	)

	switch source {
	case SourceCustom:
		return matching.NormalizeCandidates(custom), nil

	case SourceAnalytics:
		bonds, err = s.bondRepo.ListAll()

	case SourceHoldings, SourceWatchlist:
		var isins []string
		if source == SourceHoldings {
			isins, err = s.portfolioRepo.ListHoldingISINs(portfolioID)
		} else {
			isins, err = s.portfolioRepo.ListWatchlistISINs(portfolioID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s for %s: %w", source, portfolioID, err)
		}
		// Pool members missing from the analytics universe are skipped
		bonds, err = s.bondRepo.ListByISINs(isins)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s pool: %w", source, err)
	}

	return universe.Candidates(bonds), nil
}

// record appends the request to the ledger. A ledger failure never fails the match.
func (s *Service) record(resp *Response, portfolioID string) {
	if s.auditRepo == nil {
		return
	}

	entry := AuditEntry{
		ID:            resp.RequestID,
		PortfolioID:   portfolioID,
		Source:        resp.Source,
		RawInput:      resp.Intent.RawInput,
		Action:        string(resp.Intent.Action),
		QuantityType:  string(resp.Intent.QuantityType),
		QuantityValue: resp.Intent.QuantityValue,
		BondQuery:     resp.Intent.BondQuery,
		MatchCount:    len(resp.Matches),
		CreatedAt:     s.now().Unix(),
	}
	if resp.ConfidentMatch != nil {
		entry.ConfidentISIN = resp.ConfidentMatch.ISIN
	}

	if err := s.auditRepo.Record(entry); err != nil {
		s.log.Warn().Err(err).Str("request_id", resp.RequestID).Msg("Failed to record match request")
	}
}
