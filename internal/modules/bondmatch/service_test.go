package bondmatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aristath/orca/internal/database"
	"github.com/aristath/orca/internal/matching"
	"github.com/aristath/orca/internal/modules/universe"
	testingpkg "github.com/aristath/orca/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

type serviceEnv struct {
	service       *Service
	portfolioRepo *universe.PortfolioRepository
	auditRepo     *AuditRepository
}

func setupService(t *testing.T) *serviceEnv {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	universeDB, _ := testingpkg.NewTestDB(t, database.NameUniverse)
	portfolioDB, _ := testingpkg.NewTestDB(t, database.NamePortfolio)
	ledgerDB, _ := testingpkg.NewTestDB(t, database.NameLedger)

	bondRepo := universe.NewBondRepository(universeDB.Conn(), log)
	_, err := bondRepo.Upsert(testingpkg.NewBondFixtures())
	require.NoError(t, err)

	portfolioRepo := universe.NewPortfolioRepository(portfolioDB.Conn(), log)
	auditRepo := NewAuditRepository(ledgerDB.Conn(), log)

	service := NewService(bondRepo, portfolioRepo, auditRepo, log)
	service.now = func() time.Time { return fixedNow }
	ids := 0
	service.newID = func() string {
		ids++
		return fmt.Sprintf("req-%d", ids)
	}

	return &serviceEnv{service: service, portfolioRepo: portfolioRepo, auditRepo: auditRepo}
}

func TestService_MatchConfident(t *testing.T) {
	env := setupService(t)

	resp, err := env.service.Match(context.Background(), Request{Query: "sell 250k 3.25% colombia 61"})
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, SourceAnalytics, resp.Source)
	assert.Equal(t, 5, resp.TotalBondsSearched)

	assert.Equal(t, matching.ActionSell, resp.Intent.Action)
	require.NotNil(t, resp.Intent.QuantityValue)
	assert.Equal(t, 250000.0, *resp.Intent.QuantityValue)
	assert.Equal(t, "3.25% colombia 61", resp.Intent.BondQuery)

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "US195325DS19", resp.Matches[0].ISIN)
	assert.Equal(t, 88.0, resp.Matches[0].Score)

	require.NotNil(t, resp.ConfidentMatch)
	assert.Equal(t, "US195325DS19", resp.ConfidentMatch.ISIN)
	assert.Equal(t, 72.25, resp.ConfidentMatch.DirtyPrice)

	assert.Contains(t, resp.Display, "1. **COLTES** 3.25% 2061 (Colombia)")

	entries, err := env.auditRepo.ListRecent("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ID)
	assert.Equal(t, universe.DefaultPortfolioID, entries[0].PortfolioID)
	assert.Equal(t, "sell", entries[0].Action)
	assert.Equal(t, "par", entries[0].QuantityType)
	assert.Equal(t, 1, entries[0].MatchCount)
	assert.Equal(t, "US195325DS19", entries[0].ConfidentISIN)
	assert.Equal(t, fixedNow.Unix(), entries[0].CreatedAt)
}

func TestService_MatchNotConfident(t *testing.T) {
	env := setupService(t)

	resp, err := env.service.Match(context.Background(), Request{Query: "buy 500k colombia 61"})
	require.NoError(t, err)

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, 58.0, resp.Matches[0].Score)
	assert.Nil(t, resp.ConfidentMatch)

	entries, err := env.auditRepo.ListRecent("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ConfidentISIN)
}

func TestService_MatchExactISIN(t *testing.T) {
	env := setupService(t)

	resp, err := env.service.Match(context.Background(), Request{Query: "sell all XS1234567890"})
	require.NoError(t, err)

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, matching.ExactISINScore, resp.Matches[0].Score)
	require.NotNil(t, resp.ConfidentMatch)
	assert.Equal(t, "XS1234567890", resp.ConfidentMatch.ISIN)
	assert.Equal(t, matching.QuantityAll, resp.Intent.QuantityType)
}

func TestService_MatchPortfolioSources(t *testing.T) {
	env := setupService(t)

	require.NoError(t, env.portfolioRepo.SetHolding("wnbf", "US71654QDD16", 1000000))
	// Held but not in the analytics universe
	require.NoError(t, env.portfolioRepo.SetHolding("wnbf", "XS9999999999", 500000))
	require.NoError(t, env.portfolioRepo.AddToWatchlist("alt", "US195325DS19"))

	resp, err := env.service.Match(context.Background(), Request{Query: "sell half pemex 5.95 31", Source: "holdings"})
	require.NoError(t, err)
	assert.Equal(t, SourceHoldings, resp.Source)
	assert.Equal(t, 1, resp.TotalBondsSearched)
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, "US71654QDD16", resp.Matches[0].ISIN)

	resp, err = env.service.Match(context.Background(), Request{Query: "colombia 61", Source: SourceWatchlist})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalBondsSearched, "default portfolio watches nothing")
	assert.Empty(t, resp.Matches)
	assert.Equal(t, "No matching bonds found.", resp.Display)

	resp, err = env.service.Match(context.Background(), Request{Query: "colombia 61", Source: SourceWatchlist, PortfolioID: "alt"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalBondsSearched)
	require.Len(t, resp.Matches, 1)

	entries, err := env.auditRepo.ListRecent("alt", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SourceWatchlist, entries[0].Source)
}

func TestService_MatchAgreesWithOneShotEntryPoint(t *testing.T) {
	env := setupService(t)
	query := "buy 1m 3.25% colombia 61"

	resp, err := env.service.Match(context.Background(), Request{Query: query})
	require.NoError(t, err)

	expected := matching.MatchBondWithIntent(query,
		universe.CandidateRecords(testingpkg.NewBondFixtures()), matching.DefaultTopN,
		matching.WithClock(func() time.Time { return fixedNow }))

	assert.Equal(t, expected.Intent, resp.Intent)
	assert.Equal(t, expected.Matches, resp.Matches)
	assert.Equal(t, expected.ConfidentMatch, resp.ConfidentMatch)
	assert.Equal(t, expected.Display(), resp.Display)
}

func TestService_MatchCustomSource(t *testing.T) {
	env := setupService(t)

	resp, err := env.service.Match(context.Background(), Request{
		Query:  "chile 2035",
		Source: SourceCustom,
		Bonds: []matching.CandidateRecord{
			{"isin": "XS7777777777", "ticker": "CHILE", "country": "Chile", "coupon": 3.1, "maturity_year": 2035},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalBondsSearched)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "XS7777777777", resp.Matches[0].ISIN)

	// No bonds is an empty pool, not an error
	resp, err = env.service.Match(context.Background(), Request{Query: "chile 2035", Source: SourceCustom})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalBondsSearched)
	assert.NotNil(t, resp.Matches)
	assert.Empty(t, resp.Matches)
}

func TestService_MatchTopN(t *testing.T) {
	env := setupService(t)

	resp, err := env.service.Match(context.Background(), Request{Query: "2030", TopN: 1})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	// Both 2030 bonds score the year; only the Saudi description also carries "2030"
	assert.Equal(t, "XS1234567890", resp.Matches[0].ISIN)
}

func TestService_MatchValidation(t *testing.T) {
	env := setupService(t)

	tests := []struct {
		name     string
		req      Request
		expected error
	}{
		{"empty query", Request{Query: "   "}, ErrEmptyQuery},
		{"unknown source", Request{Query: "mexico", Source: "bloomberg"}, ErrUnknownSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.service.Match(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, resp)
		})
	}

	// Nothing is recorded for rejected requests
	entries, err := env.auditRepo.ListRecent("", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_MatchCancelledContext(t *testing.T) {
	env := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.service.Match(ctx, Request{Query: "mexico"})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingAudit struct{}

func (failingAudit) Record(AuditEntry) error { return errors.New("disk full") }
func (failingAudit) ListRecent(string, int) ([]AuditEntry, error) {
	return nil, errors.New("disk full")
}
func (failingAudit) DeleteOlderThan(time.Time) (int64, error) { return 0, errors.New("disk full") }

func TestService_AuditFailureDoesNotFailMatch(t *testing.T) {
	env := setupService(t)
	env.service.auditRepo = failingAudit{}

	resp, err := env.service.Match(context.Background(), Request{Query: "colombia 61"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Matches)

	_, err = env.service.History("", 10)
	assert.Error(t, err)
}

func TestService_ParseIntentAndCountries(t *testing.T) {
	env := setupService(t)

	intent := env.service.ParseIntent("sell half mexico")
	assert.Equal(t, matching.ActionSell, intent.Action)
	assert.Equal(t, matching.QuantityHalf, intent.QuantityType)
	assert.Equal(t, "mexico", intent.BondQuery)

	countries := env.service.Countries()
	assert.Contains(t, countries, "Colombia")
	assert.Contains(t, countries, "United States")
}
