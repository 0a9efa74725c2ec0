package routing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ksred/freight-clearing-api/internal/types"
)

// ErrAmbiguousPriority signals that two active rules for the same
// payer/payee/currency share the winning priority. The source system
// left this tie undefined; here it is a configuration error the
// operator has to resolve.
var ErrAmbiguousPriority = errors.New("ambiguous routing rule priority")

// Match selects the applicable routing rule for a payer, payee and
// currency at a point in time. Pure function over the rule snapshot:
// only ACTIVE rules inside their effective window are considered, and
// the numerically smallest priority wins. Returns nil when no rule
// matches; the caller falls back to a direct passthrough.
func Match(rules []RoutingRule, payer, payee, currency string, asOf time.Time) (*RoutingRule, error) {
	var best *RoutingRule
	ambiguous := false

	for i := range rules {
		rule := &rules[i]
		if rule.Status != types.RuleActive {
			continue
		}
		if rule.PayerEntityID != payer || rule.PayeeEntityID != payee || rule.Currency != currency {
			continue
		}
		if !rule.effectiveAt(asOf) {
			continue
		}

		switch {
		case best == nil || rule.Priority < best.Priority:
			best = rule
			ambiguous = false
		case rule.Priority == best.Priority:
			ambiguous = true
		}
	}

	if ambiguous {
		return nil, fmt.Errorf("%w: payer=%s payee=%s currency=%s priority=%d",
			ErrAmbiguousPriority, payer, payee, currency, best.Priority)
	}
	return best, nil
}
