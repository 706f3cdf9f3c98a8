// Package quote provides the HTTP handlers for greeks, strike searches, and
// the rebalance and premium-match workflows.
//
// Engine math runs on float64. Everything returned to clients is a
// shopspring/decimal rounded to 4 places for deltas and 2 for prices.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/hedge-engine/internal/contract"
	"github.com/atmx/hedge-engine/internal/hedge"
	"github.com/atmx/hedge-engine/internal/metrics"
	"github.com/atmx/hedge-engine/internal/model"
	"github.com/atmx/hedge-engine/internal/pricing"
	"github.com/atmx/hedge-engine/internal/store"
)

// Operation labels for metrics and logs.
const (
	opGreeks        = "greeks"
	opStrikeDelta   = "strike_delta"
	opStrikePremium = "strike_premium"
)

// DefaultListLimit caps GET /quotes when no limit is given.
const DefaultListLimit = 20

var errDaysRequired = errors.New("quote: days_to_expiry is required without a symbol")

// Service handles quote requests. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	hedger *hedge.Hedger
	store  store.Store
	wsHub  *WSHub // optional WebSocket hub for quote broadcasts
	now    func() time.Time
}

// NewService creates a new quote service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(h *hedge.Hedger, st store.Store, hub *WSHub) *Service {
	return &Service{
		hedger: h,
		store:  st,
		wsHub:  hub,
		now:    time.Now,
	}
}

// --- Request/Response types ---

// MarketRequest carries the market inputs. DaysToExpiry may be omitted when
// the request names a contract symbol; the symbol's expiry then supplies it.
type MarketRequest struct {
	Spot            float64 `json:"spot"`
	DaysToExpiry    *int    `json:"days_to_expiry,omitempty"`
	VolatilityPct   float64 `json:"volatility_pct"`
	RiskFreeRatePct float64 `json:"risk_free_rate_pct"`
}

// GreeksRequest is the JSON body for POST /greeks. Either Symbol or
// Kind and Strike identify the option.
type GreeksRequest struct {
	Market MarketRequest    `json:"market"`
	Symbol string           `json:"symbol,omitempty"` // NIFTY-20250828-850-CE
	Kind   model.OptionKind `json:"kind,omitempty"`
	Strike float64          `json:"strike,omitempty"`
}

// GreeksResponse is the JSON body returned from POST /greeks.
type GreeksResponse struct {
	Symbol  string                 `json:"symbol,omitempty"`
	Kind    model.OptionKind       `json:"kind"`
	Strike  decimal.Decimal        `json:"strike"`
	Delta   decimal.Decimal        `json:"delta"`
	D1      decimal.Decimal        `json:"d1"`
	D2      decimal.Decimal        `json:"d2"`
	Premium decimal.Decimal        `json:"premium"`
	Market  model.MarketParameters `json:"market"`
}

// StrikeSearchRequest is the JSON body for POST /strike/delta and
// POST /strike/premium. Omitted bounds default to the workflow bounds.
type StrikeSearchRequest struct {
	Market        MarketRequest    `json:"market"`
	Kind          model.OptionKind `json:"kind"`
	TargetDelta   float64          `json:"target_delta,omitempty"`
	TargetPremium float64          `json:"target_premium,omitempty"`
	MinStrike     float64          `json:"min_strike,omitempty"`
	MaxStrike     float64          `json:"max_strike,omitempty"`
	Tolerance     float64          `json:"tolerance,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty"`
}

// StrikeSearchResponse is the JSON body returned from both strike searches.
// Delta and Premium are evaluated at the unrounded solved strike.
type StrikeSearchResponse struct {
	Kind      model.OptionKind `json:"kind"`
	Strike    decimal.Decimal  `json:"strike"`
	Delta     decimal.Decimal  `json:"delta"`
	Premium   decimal.Decimal  `json:"premium"`
	MinStrike decimal.Decimal  `json:"min_strike"`
	MaxStrike decimal.Decimal  `json:"max_strike"`
	Solve     model.SolveInfo  `json:"solve"`
}

// LegRequest is an existing holding. Symbol, when set, supplies kind and
// strike.
type LegRequest struct {
	Symbol   string             `json:"symbol,omitempty"`
	Kind     model.OptionKind   `json:"kind,omitempty"`
	Strike   float64            `json:"strike,omitempty"`
	Quantity int                `json:"quantity"`
	Side     model.PositionSide `json:"side"`
}

// RebalanceRequest is the JSON body for POST /rebalance.
type RebalanceRequest struct {
	Market    MarketRequest `json:"market"`
	Existing  LegRequest    `json:"existing_leg"`
	LegToFind model.LegSpec `json:"leg_to_find"`
}

// PremiumInput is the observed option. Symbol, when set, supplies kind and
// strike.
type PremiumInput struct {
	Symbol string           `json:"symbol,omitempty"`
	Kind   model.OptionKind `json:"kind,omitempty"`
	Strike float64          `json:"strike,omitempty"`
	LTP    float64          `json:"ltp"`
}

// PremiumMatchRequest is the JSON body for POST /premium-match.
type PremiumMatchRequest struct {
	Market MarketRequest `json:"market"`
	Input  PremiumInput  `json:"input"`
}

// --- HTTP Handlers ---

// Greeks handles POST /api/v1/greeks
func (s *Service) Greeks(w http.ResponseWriter, r *http.Request) {
	var req GreeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, opGreeks, "invalid request body")
		return
	}

	kind, strike, mp, err := s.resolve(req.Symbol, req.Kind, req.Strike, req.Market)
	if err != nil {
		s.reject(w, opGreeks, err.Error())
		return
	}
	g, premium, err := pricing.Evaluate(mp, strike, kind)
	if err != nil {
		s.reject(w, opGreeks, err.Error())
		return
	}

	metrics.QuotesTotal.WithLabelValues(opGreeks).Inc()
	writeJSON(w, http.StatusOK, GreeksResponse{
		Symbol:  normalizedSymbol(req.Symbol),
		Kind:    kind,
		Strike:  roundPrice(strike),
		Delta:   roundDelta(g.Delta),
		D1:      roundDelta(g.D1),
		D2:      roundDelta(g.D2),
		Premium: roundPrice(premium),
		Market:  mp,
	})
}

// StrikeForDelta handles POST /api/v1/strike/delta
func (s *Service) StrikeForDelta(w http.ResponseWriter, r *http.Request) {
	var req StrikeSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, opStrikeDelta, "invalid request body")
		return
	}
	mp, err := req.Market.params(nil)
	if err != nil {
		s.reject(w, opStrikeDelta, err.Error())
		return
	}

	lo, hi := searchBounds(req, s.hedger.Config().Rebalance.Bounds, mp.Spot)
	found, err := pricing.FindStrikeForDelta(mp, req.TargetDelta, req.Kind, lo, hi, req.options()...)
	if err != nil {
		s.reject(w, opStrikeDelta, err.Error())
		return
	}
	s.respondStrike(w, opStrikeDelta, mp, req.Kind, found, lo, hi)
}

// StrikeForPremium handles POST /api/v1/strike/premium
func (s *Service) StrikeForPremium(w http.ResponseWriter, r *http.Request) {
	var req StrikeSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, opStrikePremium, "invalid request body")
		return
	}
	mp, err := req.Market.params(nil)
	if err != nil {
		s.reject(w, opStrikePremium, err.Error())
		return
	}

	lo, hi := searchBounds(req, s.hedger.Config().PremiumMatch.Bounds, mp.Spot)
	found, err := pricing.FindStrikeForPremium(mp, req.TargetPremium, req.Kind, lo, hi, req.options()...)
	if err != nil {
		s.reject(w, opStrikePremium, err.Error())
		return
	}
	s.respondStrike(w, opStrikePremium, mp, req.Kind, found, lo, hi)
}

func (s *Service) respondStrike(w http.ResponseWriter, op string, mp model.MarketParameters, kind model.OptionKind, found pricing.Strike, lo, hi float64) {
	g, premium, err := pricing.Evaluate(mp, found.Value, kind)
	if err != nil {
		s.reject(w, op, err.Error())
		return
	}

	metrics.QuotesTotal.WithLabelValues(op).Inc()
	metrics.ObserveSolve(op, found.Solve.Iterations, found.Solve.Converged)

	slog.Debug("strike solved",
		"op", op,
		"kind", kind,
		"strike", found.Value,
		"iterations", found.Solve.Iterations,
		"converged", found.Solve.Converged,
	)

	writeJSON(w, http.StatusOK, StrikeSearchResponse{
		Kind:      kind,
		Strike:    roundPrice(found.Value),
		Delta:     roundDelta(g.Delta),
		Premium:   roundPrice(premium),
		MinStrike: roundPrice(lo),
		MaxStrike: roundPrice(hi),
		Solve:     found.Solve,
	})
}

// Rebalance handles POST /api/v1/rebalance
// Finds the strike of a second leg that neutralizes the existing leg's delta.
func (s *Service) Rebalance(w http.ResponseWriter, r *http.Request) {
	const op = model.WorkflowRebalance

	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, op, "invalid request body")
		return
	}

	ex := req.Existing
	kind, strike, mp, err := s.resolve(ex.Symbol, ex.Kind, ex.Strike, req.Market)
	if err != nil {
		s.reject(w, op, err.Error())
		return
	}
	existing := model.OptionLeg{Kind: kind, Strike: strike, Quantity: ex.Quantity, Side: ex.Side}

	res, err := s.hedger.Rebalance(existing, req.LegToFind, mp)
	if err != nil {
		s.reject(w, op, err.Error())
		return
	}

	q := &model.Quote{
		ID:        uuid.New().String(),
		Workflow:  op,
		Market:    mp,
		CreatedAt: s.now().UTC(),
		Rebalance: &model.RebalanceQuote{
			Existing:  legQuote(res.Existing, res.ExistingRawDelta, res.ExistingPositionDelta),
			NewLeg:    legQuote(res.NewLeg, res.NewRawDelta, res.NewPositionDelta),
			NetDelta:  roundDelta(res.NetDelta),
			Offsets:   res.Offsets,
			Converged: res.Solve.Converged,
		},
	}
	metrics.ObserveSolve(op, res.Solve.Iterations, res.Solve.Converged)

	slog.Info("rebalance computed",
		"quote_id", q.ID,
		"existing", res.Existing.Kind,
		"existing_strike", res.Existing.Strike,
		"new_leg", res.NewLeg.Kind,
		"new_side", res.NewLeg.Side,
		"new_strike", res.NewLeg.Strike,
		"net_delta", q.Rebalance.NetDelta.String(),
		"offsets", res.Offsets,
		"converged", res.Solve.Converged,
	)

	s.publish(r.Context(), q, WSMessage{
		Kind:      string(res.NewLeg.Kind),
		Strike:    q.Rebalance.NewLeg.Strike.String(),
		NetDelta:  q.Rebalance.NetDelta.String(),
		Converged: res.Solve.Converged,
	})
	writeJSON(w, http.StatusOK, q)
}

// PremiumMatch handles POST /api/v1/premium-match
// Finds the opposite-kind strike whose premium equals the observed LTP.
func (s *Service) PremiumMatch(w http.ResponseWriter, r *http.Request) {
	const op = model.WorkflowPremiumMatch

	var req PremiumMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, op, "invalid request body")
		return
	}

	in := req.Input
	kind, strike, mp, err := s.resolve(in.Symbol, in.Kind, in.Strike, req.Market)
	if err != nil {
		s.reject(w, op, err.Error())
		return
	}

	res, err := s.hedger.MatchPremium(model.PremiumQuote{Kind: kind, Strike: strike, LTP: in.LTP}, mp)
	if err != nil {
		s.reject(w, op, err.Error())
		return
	}

	q := &model.Quote{
		ID:        uuid.New().String(),
		Workflow:  op,
		Market:    mp,
		CreatedAt: s.now().UTC(),
		PremiumMatch: &model.PremiumMatchQuote{
			TargetKind:      res.TargetKind,
			MatchingStrike:  roundPrice(res.Strike),
			ComputedPremium: roundPrice(res.ComputedPremium),
			InputKind:       res.Input.Kind,
			InputStrike:     roundPrice(res.Input.Strike),
			InputLTP:        roundPrice(res.Input.LTP),
			Converged:       res.Solve.Converged,
		},
	}
	metrics.ObserveSolve(op, res.Solve.Iterations, res.Solve.Converged)

	slog.Info("premium match computed",
		"quote_id", q.ID,
		"input", res.Input.Kind,
		"input_strike", res.Input.Strike,
		"ltp", res.Input.LTP,
		"target", res.TargetKind,
		"strike", res.Strike,
		"premium", q.PremiumMatch.ComputedPremium.String(),
		"converged", res.Solve.Converged,
	)

	s.publish(r.Context(), q, WSMessage{
		Kind:      string(res.TargetKind),
		Strike:    q.PremiumMatch.MatchingStrike.String(),
		Premium:   q.PremiumMatch.ComputedPremium.String(),
		Converged: res.Solve.Converged,
	})
	writeJSON(w, http.StatusOK, q)
}

// ListQuotes handles GET /api/v1/quotes
// Returns recent workflow quotes, newest first, optionally capped by ?limit=.
func (s *Service) ListQuotes(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	quotes, err := s.store.ListQuotes(r.Context(), limit)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list").Inc()
		slog.Error("list quotes failed", "err", err)
		writeError(w, "failed to list quotes", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

// GetQuote handles GET /api/v1/quotes/{quoteID}
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")

	q, err := s.store.GetQuote(r.Context(), quoteID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "quote not found", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get").Inc()
		slog.Error("get quote failed", "quote_id", quoteID, "err", err)
		writeError(w, "failed to load quote", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// --- Helpers ---

// resolve turns the request's option identity and market into engine inputs.
// A symbol overrides kind and strike and, if days_to_expiry is omitted,
// supplies it from the expiry date.
func (s *Service) resolve(symbol string, kind model.OptionKind, strike float64, m MarketRequest) (model.OptionKind, float64, model.MarketParameters, error) {
	if symbol == "" {
		mp, err := m.params(nil)
		return kind, strike, mp, err
	}
	c, err := contract.ParseSymbol(symbol)
	if err != nil {
		return "", 0, model.MarketParameters{}, err
	}
	days := c.DaysToExpiry(s.now())
	mp, err := m.params(&days)
	return c.Kind, c.StrikeFloat(), mp, err
}

// params converts the request to engine units. fallbackDays, if non-nil, is
// used when days_to_expiry is omitted.
func (m MarketRequest) params(fallbackDays *int) (model.MarketParameters, error) {
	mp := model.MarketParameters{
		Spot:            m.Spot,
		VolatilityPct:   m.VolatilityPct,
		RiskFreeRatePct: m.RiskFreeRatePct,
	}
	switch {
	case m.DaysToExpiry != nil:
		mp.DaysToExpiry = *m.DaysToExpiry
	case fallbackDays != nil:
		mp.DaysToExpiry = *fallbackDays
	default:
		return mp, errDaysRequired
	}
	return mp, nil
}

func (req StrikeSearchRequest) options() []pricing.Option {
	return []pricing.Option{
		pricing.WithTolerance(req.Tolerance),
		pricing.WithMaxIterations(req.MaxIterations),
	}
}

func searchBounds(req StrikeSearchRequest, def hedge.Bounds, spot float64) (float64, float64) {
	lo, hi := def.Strikes(spot)
	if req.MinStrike != 0 {
		lo = req.MinStrike
	}
	if req.MaxStrike != 0 {
		hi = req.MaxStrike
	}
	return lo, hi
}

// publish stores the quote and broadcasts it. Store failures are logged; the
// computed quote is still returned to the caller.
func (s *Service) publish(ctx context.Context, q *model.Quote, msg WSMessage) {
	metrics.QuotesTotal.WithLabelValues(q.Workflow).Inc()

	if err := s.store.SaveQuote(ctx, q); err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		slog.Error("save quote failed", "quote_id", q.ID, "err", err)
	}

	if s.wsHub != nil {
		msg.Type = "quote_computed"
		msg.QuoteID = q.ID
		msg.Workflow = q.Workflow
		s.wsHub.Broadcast(msg)
	}
}

func (s *Service) reject(w http.ResponseWriter, op, message string) {
	metrics.QuoteErrors.WithLabelValues(op).Inc()
	writeError(w, message, http.StatusBadRequest)
}

func legQuote(leg model.OptionLeg, raw, position float64) model.LegQuote {
	return model.LegQuote{
		Kind:          leg.Kind,
		Side:          leg.Side,
		Strike:        roundPrice(leg.Strike),
		Quantity:      leg.Quantity,
		RawDelta:      roundDelta(raw),
		PositionDelta: roundDelta(position),
	}
}

func normalizedSymbol(symbol string) string {
	if c, err := contract.ParseSymbol(symbol); err == nil {
		return c.Symbol
	}
	return ""
}

func roundDelta(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(4) }
func roundPrice(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(2) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
