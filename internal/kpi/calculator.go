package kpi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownPlatform = errors.New("unknown platform")
var ErrInvalidViewCount = errors.New("invalid view count")

// Rule is the payout curve for one platform: every full Step of views
// earns Rate payment units.
type Rule struct {
	Step int64
	Rate decimal.Decimal
}

// Rules maps platform names to their payout rule and carries the global
// minimum-view floor that gates qualification regardless of platform.
type Rules struct {
	floor     int64
	order     []string
	platforms map[string]Rule
}

// Result of evaluating one submission against the rules.
type Result struct {
	Qualifies bool
	Units     int64
	Amount    decimal.Decimal
}

const defaultFloor = 15000

// DefaultRules mirrors the production configuration.
func DefaultRules() Rules {
	r, err := New(defaultFloor, []string{"YouTube Shorts", "TikTok", "Instagram"}, map[string]Rule{
		"YouTube Shorts": {Step: 7500, Rate: decimal.NewFromInt(1)},
		"TikTok":         {Step: 7500, Rate: decimal.NewFromInt(1)},
		"Instagram":      {Step: 5000, Rate: decimal.NewFromInt(1)},
	})
	if err != nil {
		panic(err)
	}
	return r
}

func New(floor int64, order []string, platforms map[string]Rule) (Rules, error) {
	if floor < 0 {
		return Rules{}, fmt.Errorf("floor must not be negative: %d", floor)
	}
	if len(platforms) == 0 {
		return Rules{}, fmt.Errorf("at least one platform rule is required")
	}
	for name, rule := range platforms {
		if rule.Step <= 0 {
			return Rules{}, fmt.Errorf("platform %q: step must be positive", name)
		}
		if !rule.Rate.IsPositive() {
			return Rules{}, fmt.Errorf("platform %q: rate must be positive", name)
		}
	}
	if len(order) != len(platforms) {
		return Rules{}, fmt.Errorf("platform order does not match rule set")
	}
	for _, name := range order {
		if _, ok := platforms[name]; !ok {
			return Rules{}, fmt.Errorf("ordered platform %q has no rule", name)
		}
	}
	return Rules{floor: floor, order: order, platforms: platforms}, nil
}

// Load builds the rule set used at runtime: the KPI_RULES spec when one
// is configured, otherwise the default platforms with the given floor.
func Load(floor int64, spec string) (Rules, error) {
	if strings.TrimSpace(spec) != "" {
		return Parse(floor, spec)
	}
	defaults := DefaultRules()
	return New(floor, defaults.order, defaults.platforms)
}

// Parse builds a rule set from a "Name:step:rate,Name:step:rate" spec, as
// used by the KPI_RULES environment variable.
func Parse(floor int64, spec string) (Rules, error) {
	var order []string
	platforms := make(map[string]Rule)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return Rules{}, fmt.Errorf("malformed rule %q, want name:step:rate", entry)
		}
		name := strings.TrimSpace(parts[0])
		step, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return Rules{}, fmt.Errorf("rule %q: parse step: %w", entry, err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return Rules{}, fmt.Errorf("rule %q: parse rate: %w", entry, err)
		}
		if _, exists := platforms[name]; exists {
			return Rules{}, fmt.Errorf("duplicate platform %q", name)
		}
		order = append(order, name)
		platforms[name] = Rule{Step: step, Rate: rate}
	}
	return New(floor, order, platforms)
}

// Platforms returns the configured platform names in menu order.
func (r Rules) Platforms() []string {
	return append([]string(nil), r.order...)
}

// Known reports whether the platform has a configured rule.
func (r Rules) Known(platform string) bool {
	_, ok := r.platforms[platform]
	return ok
}

// Evaluate prices a view count against the rule for the given platform.
// Below the global floor nothing qualifies; otherwise every full step of
// views earns rate units of payment.
func (r Rules) Evaluate(platform string, views int64) (Result, error) {
	rule, ok := r.platforms[platform]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	if views < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidViewCount, views)
	}
	if views < r.floor {
		return Result{Amount: decimal.Zero}, nil
	}
	units := views / rule.Step
	return Result{
		Qualifies: units > 0,
		Units:     units,
		Amount:    rule.Rate.Mul(decimal.NewFromInt(units)),
	}, nil
}
