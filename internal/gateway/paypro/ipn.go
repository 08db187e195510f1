package paypro

import (
	"net/url"
	"strconv"
	"strings"
)

// IPNType is the processor's numeric event type
type IPNType int

const (
	IPNOrderCharged              IPNType = 1
	IPNOrderRefunded             IPNType = 2
	IPNOrderChargedBack          IPNType = 3
	IPNOrderDeclined             IPNType = 4
	IPNOrderPartiallyRefunded    IPNType = 5
	IPNSubscriptionChargeSucceed IPNType = 6
	IPNSubscriptionChargeFailed  IPNType = 7
	IPNSubscriptionSuspended     IPNType = 8
	IPNSubscriptionRenewed       IPNType = 9
	IPNSubscriptionTerminated    IPNType = 10
	IPNSubscriptionFinished      IPNType = 11
	IPNLicenseRequested          IPNType = 12
	IPNTrialCharge               IPNType = 13
	IPNOrderChargebackWon        IPNType = 14
	IPNCustomerInfoChanged       IPNType = 15
	IPNOrderOnWaiting            IPNType = 16
	IPNPaymentInfoChanged        IPNType = 17
)

var ipnTypeNames = map[IPNType]string{
	IPNOrderCharged:              "OrderCharged",
	IPNOrderRefunded:             "OrderRefunded",
	IPNOrderChargedBack:          "OrderChargedBack",
	IPNOrderDeclined:             "OrderDeclined",
	IPNOrderPartiallyRefunded:    "OrderPartiallyRefunded",
	IPNSubscriptionChargeSucceed: "SubscriptionChargeSucceed",
	IPNSubscriptionChargeFailed:  "SubscriptionChargeFailed",
	IPNSubscriptionSuspended:     "SubscriptionSuspended",
	IPNSubscriptionRenewed:       "SubscriptionRenewed",
	IPNSubscriptionTerminated:    "SubscriptionTerminated",
	IPNSubscriptionFinished:      "SubscriptionFinished",
	IPNLicenseRequested:          "LicenseRequested",
	IPNTrialCharge:               "TrialCharge",
	IPNOrderChargebackWon:        "OrderChargebackWon",
	IPNCustomerInfoChanged:       "CustomerInfoChanged",
	IPNOrderOnWaiting:            "OrderOnWaiting",
	IPNPaymentInfoChanged:        "PaymentInfoChanged",
}

// String returns the canonical type name, or "Unknown"
func (t IPNType) String() string {
	if name, ok := ipnTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Form keys of the IPN body. They are case-sensitive.
const (
	fieldTypeID               = "IPN_TYPE_ID"
	fieldTypeName             = "IPN_TYPE_NAME"
	fieldTestMode             = "TEST_MODE"
	fieldOrderID              = "ORDER_ID"
	fieldOrderStatus          = "ORDER_STATUS"
	fieldOrderTotalAmount     = "ORDER_TOTAL_AMOUNT"
	fieldOrderCurrency        = "ORDER_CURRENCY_CODE"
	fieldCustomerID           = "CUSTOMER_ID"
	fieldCustomerEmail        = "CUSTOMER_EMAIL"
	fieldCustomerFirstName    = "CUSTOMER_FIRST_NAME"
	fieldCustomerLastName     = "CUSTOMER_LAST_NAME"
	fieldProductID            = "PRODUCT_ID"
	fieldSubscriptionID       = "SUBSCRIPTION_ID"
	fieldSubscriptionStatus   = "SUBSCRIPTION_STATUS_NAME"
	fieldSubscriptionNextDate = "SUBSCRIPTION_NEXT_CHARGE_DATE"
	fieldSubscriptionNextAmt  = "SUBSCRIPTION_NEXT_CHARGE_AMOUNT"
	fieldHash                 = "HASH"
	fieldSignature            = "SIGNATURE"
	fieldCustomFields         = "ORDER_CUSTOM_FIELDS"
)

// CustomFields are the x- pass-through values set at checkout. They are
// attacker-controlled until the event has been verified.
type CustomFields struct {
	UserID        string `json:"userId"`
	PlanID        string `json:"planId"`
	BillingPeriod string `json:"billingPeriod"`
	PackID        string `json:"packId"`
}

// Event is a typed view over an IPN body. Missing fields are empty strings.
type Event struct {
	TypeID   IPNType
	TypeName string
	TestMode bool

	OrderID          string
	OrderStatus      string
	OrderTotalAmount string
	OrderCurrency    string

	CustomerID        string
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string

	ProductID                    string
	SubscriptionID               string
	SubscriptionStatus           string
	SubscriptionNextChargeDate   string
	SubscriptionNextChargeAmount string

	Hash      string
	Signature string

	Custom    CustomFields
	RawCustom map[string]string
}

// ParseIPN parses a form-encoded IPN body. It never checks authenticity.
func ParseIPN(body []byte) (*Event, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, ErrInvalidPayload
	}
	return ParseIPNValues(values), nil
}

// ParseIPNValues builds an Event from already-decoded form values
func ParseIPNValues(v url.Values) *Event {
	typeID, _ := strconv.Atoi(strings.TrimSpace(v.Get(fieldTypeID))) //nolint:errcheck // zero on garbage

	raw := ParseCustomFields(v.Get(fieldCustomFields))

	return &Event{
		TypeID:   IPNType(typeID),
		TypeName: v.Get(fieldTypeName),
		TestMode: v.Get(fieldTestMode) == "1",

		OrderID:          v.Get(fieldOrderID),
		OrderStatus:      v.Get(fieldOrderStatus),
		OrderTotalAmount: v.Get(fieldOrderTotalAmount),
		OrderCurrency:    v.Get(fieldOrderCurrency),

		CustomerID:        v.Get(fieldCustomerID),
		CustomerEmail:     v.Get(fieldCustomerEmail),
		CustomerFirstName: v.Get(fieldCustomerFirstName),
		CustomerLastName:  v.Get(fieldCustomerLastName),

		ProductID:                    v.Get(fieldProductID),
		SubscriptionID:               v.Get(fieldSubscriptionID),
		SubscriptionStatus:           v.Get(fieldSubscriptionStatus),
		SubscriptionNextChargeDate:   v.Get(fieldSubscriptionNextDate),
		SubscriptionNextChargeAmount: v.Get(fieldSubscriptionNextAmt),

		Hash:      v.Get(fieldHash),
		Signature: v.Get(fieldSignature),

		Custom: CustomFields{
			UserID:        raw["userId"],
			PlanID:        raw["planId"],
			BillingPeriod: raw["billingPeriod"],
			PackID:        raw["packId"],
		},
		RawCustom: raw,
	}
}

// ParseCustomFields splits "x-a=1,x-b=2;x-c=3" into {a:1, b:2, c:3}.
// Pairs are separated by ',' or ';', split on the first '=', and the x-
// prefix is dropped from keys. Entries without '=' or with an empty key
// are skipped.
func ParseCustomFields(s string) map[string]string {
	out := map[string]string{}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimPrefix(strings.TrimSpace(key), "x-")
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}

	return out
}
