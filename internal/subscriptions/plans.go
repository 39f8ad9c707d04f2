package subscriptions

import "fmt"

// PlanNone marks a profile with no subscription.
const PlanNone = "none"

// Plan is one purchasable subscription, priced in the smallest currency
// unit. The table is static and validated at startup; there is no runtime
// plan administration.
type Plan struct {
	Key          string `json:"key"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
	Label        string `json:"label"`
	Description  string `json:"description"`
}

var planOrder = []string{"one_month", "six_months", "one_year"}

var plans = map[string]Plan{
	"one_month": {
		Key:          "one_month",
		Price:        120,
		DurationDays: 30,
		Label:        "1 Month Access",
		Description:  "Quick access for trying Jobflick for a month.",
	},
	"six_months": {
		Key:          "six_months",
		Price:        500,
		DurationDays: 182,
		Label:        "6 Months Access",
		Description:  "Unlimited job posts and applications for half a year.",
	},
	"one_year": {
		Key:          "one_year",
		Price:        800,
		DurationDays: 365,
		Label:        "12 Months Access",
		Description:  "Full-year access to post and apply without limits.",
	},
}

// PlanByKey looks up a plan. The boolean is false for unknown keys.
func PlanByKey(key string) (Plan, bool) {
	p, ok := plans[key]
	return p, ok
}

// Plans returns every purchasable plan in display order.
func Plans() []Plan {
	out := make([]Plan, 0, len(planOrder))
	for _, key := range planOrder {
		out = append(out, plans[key])
	}
	return out
}

// ValidatePlans checks the static plan table. Main calls it at startup so a
// bad table is a boot failure, not a silent runtime fallback.
func ValidatePlans() error {
	if len(planOrder) != len(plans) {
		return fmt.Errorf("plan order lists %d plans, table holds %d", len(planOrder), len(plans))
	}
	for _, key := range planOrder {
		p, ok := plans[key]
		if !ok {
			return fmt.Errorf("plan %q in order but not in table", key)
		}
		if p.Key != key {
			return fmt.Errorf("plan %q has mismatched key %q", key, p.Key)
		}
		if p.Price <= 0 {
			return fmt.Errorf("plan %q has non-positive price %d", key, p.Price)
		}
		if p.DurationDays <= 0 {
			return fmt.Errorf("plan %q has non-positive duration %d", key, p.DurationDays)
		}
		if p.Label == "" {
			return fmt.Errorf("plan %q has no label", key)
		}
	}
	return nil
}
