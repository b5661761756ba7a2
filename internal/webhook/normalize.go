// Package webhook turns payment-platform callbacks of unknown shape into a
// canonical event. It is pure: detection, field extraction and event
// classification happen here, persistence happens in the application layer.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Platforms whose payload shapes are recognized. Values match the
// enabled_platforms entries stored on a product.
const (
	PlatformCartPanda = "cartpanda"
	PlatformHotmart   = "hotmart"
	PlatformYampi     = "yampi" // Kiwify sends the same shape
)

// EventKind classifies what a webhook asks for.
type EventKind int

const (
	// KindUnknown covers informational events the system does not act on.
	// They are acknowledged without side effects, never rejected: senders
	// retry on errors and must not be broken by event types we ignore.
	KindUnknown EventKind = iota
	KindGrant
	KindRevoke
)

func (k EventKind) String() string {
	switch k {
	case KindGrant:
		return "grant"
	case KindRevoke:
		return "revoke"
	default:
		return "unknown"
	}
}

// Event is the canonical, platform-independent form of a webhook payload.
type Event struct {
	Email    string
	FullName string
	Phone    string
	Platform string
	Signal   string // raw event signal as sent by the platform
	Kind     EventKind
}

// ErrUnrecognizedPayload means no platform shape matched the body.
var ErrUnrecognizedPayload = errors.New("unrecognized webhook payload shape")

// PlatformNotEnabledError is returned when the detected platform is not in
// the product's enabled set.
type PlatformNotEnabledError struct {
	Platform string
}

func (e *PlatformNotEnabledError) Error() string {
	return fmt.Sprintf("platform %s is not enabled for this product", e.Platform)
}

// MissingFieldError is returned when a required canonical field is empty
// after extraction.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q in webhook payload", e.Field)
}

// Payload variants. Discriminating fields are pointers so that field
// presence, not emptiness, drives detection.

type cartPandaPayload struct {
	CustomerEmail *string `json:"customer_email"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	EventType     string  `json:"event_type"`
	Status        string  `json:"status"`
}

type hotmartBuyer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type hotmartPayload struct {
	Event string `json:"event"`
	Data  struct {
		Buyer *hotmartBuyer `json:"buyer"`
	} `json:"data"`
}

type yampiPayload struct {
	Email             *string `json:"email"`
	Name              string  `json:"name"`
	Phone             string  `json:"phone"`
	TransactionStatus string  `json:"transaction_status"`
}

var (
	revokeTerms = []string{"cancelled", "canceled", "refunded", "refund", "chargeback"}
	grantTerms  = []string{"approved", "paid", "complete", "completed", "success", "active"}
)

// ClassifySignal maps a platform event signal onto an EventKind using
// case-insensitive substring matching. Revocation terms are checked first:
// "refunded" must not read as a grant because of some future overlap in
// the term lists.
func ClassifySignal(signal string) EventKind {
	s := strings.ToLower(signal)
	for _, term := range revokeTerms {
		if strings.Contains(s, term) {
			return KindRevoke
		}
	}
	for _, term := range grantTerms {
		if strings.Contains(s, term) {
			return KindGrant
		}
	}
	return KindUnknown
}

// Normalize detects the platform shape of body, gates it against the
// product's enabled platforms and returns the canonical event.
//
// Detection order is deliberate and first-match-wins: a payload carrying
// both customer_email and email would satisfy more than one shape, so the
// priority list below is part of the contract, not an accident.
func Normalize(body []byte, enabledPlatforms []string) (*Event, error) {
	ev, ok := detect(body)
	if !ok {
		return nil, ErrUnrecognizedPayload
	}

	if !platformEnabled(ev.Platform, enabledPlatforms) {
		return nil, &PlatformNotEnabledError{Platform: ev.Platform}
	}

	ev.Email = strings.ToLower(strings.TrimSpace(ev.Email))
	ev.FullName = strings.TrimSpace(ev.FullName)
	ev.Phone = strings.TrimSpace(ev.Phone)

	if ev.Email == "" {
		return nil, &MissingFieldError{Field: "email"}
	}
	if ev.FullName == "" {
		return nil, &MissingFieldError{Field: "full_name"}
	}

	ev.Kind = ClassifySignal(ev.Signal)
	return ev, nil
}

func detect(body []byte) (*Event, bool) {
	// 1. CartPanda / generic: top-level customer_email
	var cp cartPandaPayload
	if err := json.Unmarshal(body, &cp); err == nil && cp.CustomerEmail != nil {
		signal := cp.EventType
		if signal == "" {
			signal = cp.Status
		}
		return &Event{
			Email:    *cp.CustomerEmail,
			FullName: cp.CustomerName,
			Phone:    cp.CustomerPhone,
			Platform: PlatformCartPanda,
			Signal:   signal,
		}, true
	}

	// 2. Hotmart: nested data.buyer
	var hm hotmartPayload
	if err := json.Unmarshal(body, &hm); err == nil && hm.Data.Buyer != nil {
		return &Event{
			Email:    hm.Data.Buyer.Email,
			FullName: hm.Data.Buyer.Name,
			Phone:    hm.Data.Buyer.Phone,
			Platform: PlatformHotmart,
			Signal:   hm.Event,
		}, true
	}

	// 3. Yampi / Kiwify: top-level email
	var yp yampiPayload
	if err := json.Unmarshal(body, &yp); err == nil && yp.Email != nil {
		return &Event{
			Email:    *yp.Email,
			FullName: yp.Name,
			Phone:    yp.Phone,
			Platform: PlatformYampi,
			Signal:   yp.TransactionStatus,
		}, true
	}

	return nil, false
}

func platformEnabled(platform string, enabled []string) bool {
	for _, p := range enabled {
		if p == platform {
			return true
		}
	}
	return false
}

// GenericOrder is the body of the secret-less CartPanda endpoint, which
// names the product directly instead of routing by webhook secret.
type GenericOrder struct {
	CustomerEmail string `json:"customer_email"`
	ProductID     string `json:"product_id"`
	Status        string `json:"status"`
}

// ParseGenericOrder decodes the generic CartPanda order body.
func ParseGenericOrder(body []byte) (*GenericOrder, error) {
	var o GenericOrder
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, ErrUnrecognizedPayload
	}
	o.CustomerEmail = strings.ToLower(strings.TrimSpace(o.CustomerEmail))
	return &o, nil
}
