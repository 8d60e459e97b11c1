// Package coingecko implements relation.Source by querying the CoinGecko
// HTTP API for a single day's historical price and caching the result.
package coingecko

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	gecko "github.com/superoo7/go-gecko/v3"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/relation"
)

var _ relation.Source = (*Source)(nil)

// CoinID maps a currency.Code (e.g. "BTC") to the slug CoinGecko uses to
// identify it (e.g. "bitcoin").
type CoinID map[currency.Code]string

// Source fetches one historical day's price per (coin, day) pair on
// demand and caches it for the lifetime of the process.
type Source struct {
	client      *gecko.Client
	coinIDs     CoinID
	vsCurrency  string // CoinGecko's quote currency code, e.g. "usd"
	minInterval time.Duration

	mu        sync.Mutex
	cache     map[cacheKey]money.Amount
	lastCall  time.Time
	callCount int
}

type cacheKey struct {
	coin string
	day  string
}

// New builds a Source quoting every coin in coinIDs against vsCurrency
// (a CoinGecko quote code, e.g. "usd"). minInterval throttles outbound
// requests; pass 0 to disable throttling.
func New(coinIDs CoinID, vsCurrency string, minInterval time.Duration) *Source {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Source{
		client:      gecko.NewClient(httpClient),
		coinIDs:     coinIDs,
		vsCurrency:  strings.ToLower(vsCurrency),
		minInterval: minInterval,
		cache:       make(map[cacheKey]money.Amount),
	}
}

// Get implements relation.Source. pair.Quote must equal the Source's
// configured vsCurrency (case-insensitively); pair.Base must be one of the
// configured coin IDs.
func (s *Source) Get(pair currency.Pair, t instant.Instant) (money.Amount, error) {
	if !strings.EqualFold(string(pair.Quote), s.vsCurrency) {
		return money.Zero, errors.Errorf("coingecko: source quotes against %s, got %s", s.vsCurrency, pair.Quote)
	}
	coinID, ok := s.coinIDs[pair.Base]
	if !ok {
		return money.Zero, errors.Errorf("coingecko: no coin id configured for %s", pair.Base)
	}

	day := t.Time().UTC().Format("2006-01-02")
	key := cacheKey{coin: coinID, day: day}

	s.mu.Lock()
	if price, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return price, nil
	}
	s.mu.Unlock()

	s.throttle()

	cgDate := t.Time().UTC().Format("02-01-2006")
	details, err := s.client.CoinsIDHistory(coinID, cgDate, false)
	if err != nil {
		return money.Zero, errors.Wrapf(relation.ErrNoRate, "coingecko: %s on %s: %v", coinID, cgDate, err)
	}
	if details == nil || details.MarketData == nil {
		return money.Zero, errors.Wrapf(relation.ErrNoRate, "coingecko: no market data for %s on %s", coinID, cgDate)
	}
	raw, ok := details.MarketData.CurrentPrice[s.vsCurrency]
	if !ok {
		return money.Zero, errors.Wrapf(relation.ErrNoRate, "coingecko: no %s price for %s on %s", s.vsCurrency, coinID, cgDate)
	}
	price := money.NewFromFloat(float64(raw))

	s.mu.Lock()
	s.cache[key] = price
	s.mu.Unlock()

	return price, nil
}

// throttle sleeps just long enough to keep successive calls at least
// minInterval apart, mirroring RateLimitCoinGeckoApiCalls' goal without
// its sliding window: CoinGecko's free tier is rate-limited per-minute.
func (s *Source) throttle() {
	if s.minInterval <= 0 {
		return
	}
	s.mu.Lock()
	wait := s.minInterval - time.Since(s.lastCall)
	s.lastCall = time.Now()
	s.callCount++
	s.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}
