package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/logger"
)

// Match pairs a ledger transaction with a statement transaction, or records
// one side alone when no counterpart was found
type Match struct {
	Ledger      *models.LedgerTransaction    `json:"ledger_transaction,omitempty"`
	Statement   *models.StatementTransaction `json:"statement_transaction,omitempty"`
	Type        MatchType                    `json:"match_type"`
	Confidence  float64                      `json:"confidence"`
	Discrepancy *decimal.Decimal             `json:"discrepancy,omitempty"`
}

// MatchResult represents the outcome of matching one account's records
type MatchResult struct {
	Matches []Match `json:"matches"`

	ExactMatches       int `json:"exact_matches"`
	FuzzyMatches       int `json:"fuzzy_matches"`
	UnmatchedLedger    int `json:"unmatched_ledger"`
	UnmatchedStatement int `json:"unmatched_statement"`
}

// MatchedCount is the number of two-sided matches
func (mr *MatchResult) MatchedCount() int {
	return mr.ExactMatches + mr.FuzzyMatches
}

// MatchingEngine is the core engine responsible for transaction matching
type MatchingEngine struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Match runs every pass over the given records. Matches reference elements of
// the input slices, which are never modified. Each input record appears in
// exactly one Match of the result.
func (me *MatchingEngine) Match(ledger []models.LedgerTransaction, statement []models.StatementTransaction) *MatchResult {
	ledgerPool := newPool(ledger)
	statementPool := newPool(statement)
	result := &MatchResult{
		Matches: make([]Match, 0, len(ledger)+len(statement)),
	}

	// Pass 1: exact
	for _, m := range runPass(ledgerPool, statementPool, me.exactCandidate) {
		result.Matches = append(result.Matches, m)
		result.ExactMatches++
	}

	// Pass 2: fuzzy
	if me.config.EnableFuzzyMatching {
		for _, m := range runPass(ledgerPool, statementPool, me.fuzzyCandidate) {
			result.Matches = append(result.Matches, m)
			result.FuzzyMatches++
		}
	}

	// Pass 3: ledger leftovers
	for _, l := range ledgerPool.items {
		result.Matches = append(result.Matches, Match{Ledger: l, Type: MatchUnmatched})
		result.UnmatchedLedger++
	}

	// Pass 4: statement leftovers
	for _, s := range statementPool.items {
		result.Matches = append(result.Matches, Match{Statement: s, Type: MatchUnmatched})
		result.UnmatchedStatement++
	}

	me.logger.WithFields(logger.Fields{
		"ledger":              len(ledger),
		"statement":           len(statement),
		"exact":               result.ExactMatches,
		"fuzzy":               result.FuzzyMatches,
		"unmatched_ledger":    result.UnmatchedLedger,
		"unmatched_statement": result.UnmatchedStatement,
	}).Debug("Matching complete")

	return result
}

// exactCandidate accepts a pair whose amounts agree within tolerance and whose
// dates fall inside the exact window
func (me *MatchingEngine) exactCandidate(l *models.LedgerTransaction, s *models.StatementTransaction) (Match, bool) {
	amountDelta := l.Amount.Sub(s.Amount).Abs()
	if amountDelta.GreaterThan(me.config.Tolerance) {
		return Match{}, false
	}
	if l.Date.DaysBetween(s.Date) > me.config.ExactDateWindowDays {
		return Match{}, false
	}

	return Match{
		Ledger:     l,
		Statement:  s,
		Type:       MatchExact,
		Confidence: 1.0,
	}, true
}

// fuzzyCandidate accepts a pair inside the wider fuzzy bounds whose confidence
// exceeds the configured minimum
func (me *MatchingEngine) fuzzyCandidate(l *models.LedgerTransaction, s *models.StatementTransaction) (Match, bool) {
	amountDelta := l.Amount.Sub(s.Amount).Abs()
	if amountDelta.GreaterThan(me.config.FuzzyAmountBound()) {
		return Match{}, false
	}

	days := l.Date.DaysBetween(s.Date)
	if days > me.config.FuzzyDateWindowDays {
		return Match{}, false
	}

	shared := SharesToken(l.Payee, s.Description, me.config.MinTokenLength)
	confidence := FuzzyConfidence(amountDelta, days, shared, me.config.Penalties)
	if confidence <= me.config.MinFuzzyConfidence {
		return Match{}, false
	}

	return Match{
		Ledger:      l,
		Statement:   s,
		Type:        MatchFuzzy,
		Confidence:  confidence,
		Discrepancy: &amountDelta,
	}, true
}

// pool is the working set of records a pass may still consume
type pool[T any] struct {
	items []*T
}

func newPool[T any](records []T) *pool[T] {
	p := &pool[T]{items: make([]*T, len(records))}
	for i := range records {
		p.items[i] = &records[i]
	}
	return p
}

// take removes and returns the item at index i, preserving the order of the rest
func (p *pool[T]) take(i int) *T {
	item := p.items[i]
	p.items = append(p.items[:i:i], p.items[i+1:]...)
	return item
}

// runPass walks the ledger pool in order and pairs each record with the first
// statement record the accept function takes. Paired records leave their
// pools; the rest stay for the next pass.
func runPass(
	ledger *pool[models.LedgerTransaction],
	statement *pool[models.StatementTransaction],
	accept func(*models.LedgerTransaction, *models.StatementTransaction) (Match, bool),
) []Match {
	var matches []Match
	remaining := make([]*models.LedgerTransaction, 0, len(ledger.items))

	for _, l := range ledger.items {
		paired := false
		for j, s := range statement.items {
			if m, ok := accept(l, s); ok {
				statement.take(j)
				matches = append(matches, m)
				paired = true
				break
			}
		}
		if !paired {
			remaining = append(remaining, l)
		}
	}

	ledger.items = remaining
	return matches
}

// GetConfiguration returns a copy of the current configuration
func (me *MatchingEngine) GetConfiguration() *MatchingConfig {
	return me.config.Clone()
}

// UpdateConfiguration updates the matching configuration
func (me *MatchingEngine) UpdateConfiguration(config *MatchingConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	me.config = config.Clone()
	return nil
}
