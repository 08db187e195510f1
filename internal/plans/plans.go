// Package plans is the static catalog of subscription tiers and one-time
// message packs. All tiers share the same feature set and differ only by
// their monthly message quota.
package plans

import "math"

// ID identifies a plan tier
type ID string

const (
	Trial      ID = "trial"
	Starter    ID = "starter"
	Pro        ID = "pro"
	Business   ID = "business"
	Enterprise ID = "enterprise"
)

// UnlimitedMessages is the quota sentinel; any limit at or above it is unlimited
const UnlimitedMessages = 999999

// YearlyDiscount is applied to twelve monthly payments
const YearlyDiscount = 0.2

// TrialDays is the length of the signup trial
const TrialDays = 14

// Features are the boolean capabilities granted by a plan
type Features struct {
	Analytics   bool `json:"analytics"`
	CustomLogo  bool `json:"custom_logo"`
	FileUpload  bool `json:"file_upload"`
	Automations bool `json:"automations"`
	CRM         bool `json:"crm"`
	Broadcasts  bool `json:"broadcasts"`
}

// allFeatures is granted to every plan, trial included
var allFeatures = Features{
	Analytics:   true,
	CustomLogo:  true,
	FileUpload:  true,
	Automations: true,
	CRM:         true,
	Broadcasts:  true,
}

// Plan is a static plan descriptor. Prices are in whole USD.
type Plan struct {
	ID            ID       `json:"id"`
	Name          string   `json:"name"`
	MonthlyPrice  int      `json:"monthly_price"`
	YearlyPrice   int      `json:"yearly_price"`
	MessagesLimit int      `json:"messages_limit"`
	Features      Features `json:"features"`
}

// Unlimited reports whether the plan has no message cap
func (p Plan) Unlimited() bool {
	return p.MessagesLimit >= UnlimitedMessages
}

// yearlyPrice applies the yearly discount and rounds to whole units
func yearlyPrice(monthly int) int {
	return int(math.Round(float64(monthly) * 12 * (1 - YearlyDiscount)))
}

func newPlan(id ID, name string, monthly, messages int) Plan {
	return Plan{
		ID:            id,
		Name:          name,
		MonthlyPrice:  monthly,
		YearlyPrice:   yearlyPrice(monthly),
		MessagesLimit: messages,
		Features:      allFeatures,
	}
}

// order is the display order of the catalog
var order = []ID{Trial, Starter, Pro, Business, Enterprise}

var catalog = map[ID]Plan{
	Trial:      newPlan(Trial, "Trial", 0, 50),
	Starter:    newPlan(Starter, "Starter", 20, 200),
	Pro:        newPlan(Pro, "Pro", 50, 1000),
	Business:   newPlan(Business, "Business", 100, 3000),
	Enterprise: newPlan(Enterprise, "Enterprise", 250, UnlimitedMessages),
}

// Get returns the plan for id. Unknown or legacy ids degrade to the trial plan.
func Get(id string) Plan {
	if p, ok := catalog[ID(id)]; ok {
		return p
	}
	return catalog[Trial]
}

// Lookup returns the plan and whether id is a known plan
func Lookup(id string) (Plan, bool) {
	p, ok := catalog[ID(id)]
	return p, ok
}

// IsPurchasable reports whether id names a paid plan that can be checked out
func IsPurchasable(id string) bool {
	p, ok := catalog[ID(id)]
	return ok && p.ID != Trial
}

// MessagesLimit returns the message quota for id
func MessagesLimit(id string) int {
	return Get(id).MessagesLimit
}

// IsUnlimited reports whether id has no message cap
func IsUnlimited(id string) bool {
	return MessagesLimit(id) >= UnlimitedMessages
}

// All returns every plan in display order
func All() []Plan {
	out := make([]Plan, 0, len(order))
	for _, id := range order {
		out = append(out, catalog[id])
	}
	return out
}

// Feature gates. Every plan gets every feature; only the quota differs.

func CanUseAnalytics(string) bool   { return true }
func CanUploadLogo(string) bool     { return true }
func CanUploadFiles(string) bool    { return true }
func CanUseAutomations(string) bool { return true }
func CanUseCRM(string) bool         { return true }
func CanUseBroadcasts(string) bool  { return true }
