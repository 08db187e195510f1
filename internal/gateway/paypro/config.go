package paypro

import "time"

// Default endpoints of the hosted store
const (
	DefaultCheckoutBaseURL = "https://store.payproglobal.com/checkout"
	DefaultAPIBaseURL      = "https://store.payproglobal.com/api"
	DefaultTimeout         = 15 * time.Second
)

// DefaultAllowedIPs are the processor's published IPN egress addresses.
// Override with Config.AllowedIPs when the processor announces changes.
var DefaultAllowedIPs = []string{
	"198.199.123.239",
	"104.131.103.150",
}

// Config holds the processor credentials and product mappings. It is
// built once at startup and passed to NewGateway.
type Config struct {
	VendorAccountID int64
	APISecretKey    string
	IPNSecretKey    string
	ValidationKey   string
	TestMode        bool

	// PlanProducts maps "<planId>_<billingPeriod>" to a processor product id
	PlanProducts map[string]string
	// PackProducts maps a pack id to a processor product id
	PackProducts map[string]string

	// AppURL is the public dashboard URL used for success redirects
	AppURL string

	CheckoutBaseURL string
	APIBaseURL      string
	AllowedIPs      []string
	Timeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.CheckoutBaseURL == "" {
		c.CheckoutBaseURL = DefaultCheckoutBaseURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if len(c.AllowedIPs) == 0 {
		c.AllowedIPs = DefaultAllowedIPs
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PlanProducts == nil {
		c.PlanProducts = map[string]string{}
	}
	if c.PackProducts == nil {
		c.PackProducts = map[string]string{}
	}
	return c
}
