// Package admission decides whether a campaign launch or a recipient addition
// may proceed given wallet balance, an optional budget cap or reboost credits.
//
// All functions are pure: they never fail and never mutate their inputs.
// Denials are reported in the returned result, not as errors.
package admission

import (
	"math"

	"github.com/foxzi/reachgate/internal/metrics"
	"github.com/foxzi/reachgate/internal/money"
)

// MaxRecipients is the largest recipient count accepted from callers
const MaxRecipients = 1_000_000_000

// Default per-campaign pricing
var (
	DefaultPerMessageCost = money.FromCents(170)
	DefaultStartupFee     = money.FromCents(100)
)

// Pricing holds the unit cost of a message and the fixed fee per campaign
type Pricing struct {
	PerMessage money.Amount `yaml:"per_message_cost" json:"per_message_cost"`
	StartupFee money.Amount `yaml:"startup_fee" json:"startup_fee"`
}

// DefaultPricing returns 1.70 per message and a 1.00 startup fee
func DefaultPricing() Pricing {
	return Pricing{
		PerMessage: DefaultPerMessageCost,
		StartupFee: DefaultStartupFee,
	}
}

// Decision is the outcome of a wallet admission check
type Decision struct {
	Admitted  bool         `json:"admitted"`
	Shortfall money.Amount `json:"shortfall"`
}

// BudgetDecision is the outcome of a budget cap check
type BudgetDecision struct {
	Allowed bool `json:"allowed"`
	// MaxAdditional is how many more recipients fit under the cap
	MaxAdditional int `json:"max_additional"`
}

// ReboostDecision is the outcome of a reboost credit check
type ReboostDecision struct {
	Admitted      bool `json:"admitted"`
	CreditsNeeded int  `json:"credits_needed"`
}

// Estimate is the derived cost view of a campaign. It is recomputed on every
// change of recipients or balance and never stored.
type Estimate struct {
	RecipientCount   int          `json:"recipient_count"`
	PerMessageCost   money.Amount `json:"per_message_cost"`
	StartupFee       money.Amount `json:"startup_fee"`
	TotalCost        money.Amount `json:"total_cost"`
	AvailableBalance money.Amount `json:"available_balance"`
	Shortfall        money.Amount `json:"shortfall"`
	Admitted         bool         `json:"admitted"`
}

// EstimateCost returns recipients*PerMessage + StartupFee.
// Negative recipient counts are treated as zero. Totals too large for an
// Amount saturate at money.Max, which no balance below it covers.
func EstimateCost(recipients int, p Pricing) money.Amount {
	if recipients < 0 {
		recipients = 0
	}
	return p.PerMessage.Mul(int64(recipients)).Add(p.StartupFee)
}

// CheckAdmission admits when balance covers total and reports the missing
// amount otherwise.
func CheckAdmission(total, balance money.Amount) Decision {
	d := Decision{Admitted: balance.Cmp(total) >= 0}
	if !d.Admitted {
		d.Shortfall = total.Sub(balance)
	}
	metrics.IncAdmissionDecision("wallet", d.Admitted)
	return d
}

// CheckBudgetCap computes how many additional recipients fit under budgetCap given
// current recipients already selected, and whether additional fits.
// A zero per-message cost leaves the count unbounded by the cap.
func CheckBudgetCap(current, additional int, p Pricing, budgetCap money.Amount) BudgetDecision {
	if current < 0 {
		current = 0
	}
	if additional < 0 {
		additional = 0
	}

	var maxAdditional int
	switch {
	case p.PerMessage.Cents() <= 0:
		if budgetCap.Cmp(p.StartupFee) >= 0 {
			maxAdditional = math.MaxInt
		}
	default:
		spendable := budgetCap.Sub(p.StartupFee)
		if !spendable.IsNegative() {
			affordable := int(spendable.Cents() / p.PerMessage.Cents())
			maxAdditional = max(0, affordable-current)
		}
	}

	d := BudgetDecision{
		Allowed:       additional <= maxAdditional,
		MaxAdditional: maxAdditional,
	}
	metrics.IncAdmissionDecision("budget_cap", d.Allowed)
	return d
}

// CheckReboostAdmission charges one credit per message plus one startup credit.
// CreditsNeeded saturates at math.MaxInt.
func CheckReboostAdmission(recipients, credits int) ReboostDecision {
	if recipients < 0 {
		recipients = 0
	}
	d := ReboostDecision{CreditsNeeded: math.MaxInt}
	if recipients < math.MaxInt {
		d.CreditsNeeded = recipients + 1
	}
	// credits >= recipients+1 without computing the sum
	d.Admitted = credits > recipients
	metrics.IncAdmissionDecision("reboost", d.Admitted)
	return d
}

// Quote builds the full cost estimate for sending to recipients with balance
func Quote(recipients int, balance money.Amount, p Pricing) Estimate {
	if recipients < 0 {
		recipients = 0
	}
	total := EstimateCost(recipients, p)
	d := CheckAdmission(total, balance)
	return Estimate{
		RecipientCount:   recipients,
		PerMessageCost:   p.PerMessage,
		StartupFee:       p.StartupFee,
		TotalCost:        total,
		AvailableBalance: balance,
		Shortfall:        d.Shortfall,
		Admitted:         d.Admitted,
	}
}
