package webhook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allPlatforms = []string{PlatformCartPanda, PlatformHotmart, PlatformYampi}

func TestNormalizeDetectsCartPanda(t *testing.T) {
	body := []byte(`{"customer_email":"A@X.com ","customer_name":"Jo","status":"approved"}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)

	assert.Equal(t, PlatformCartPanda, ev.Platform)
	assert.Equal(t, "a@x.com", ev.Email)
	assert.Equal(t, "Jo", ev.FullName)
	assert.Equal(t, KindGrant, ev.Kind)
}

func TestNormalizeDetectsHotmart(t *testing.T) {
	body := []byte(`{"event":"PURCHASE_APPROVED","data":{"buyer":{"email":"buyer@example.com","name":"Maria Silva","phone":"+5511999999999"}}}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)

	assert.Equal(t, PlatformHotmart, ev.Platform)
	assert.Equal(t, "buyer@example.com", ev.Email)
	assert.Equal(t, "Maria Silva", ev.FullName)
	assert.Equal(t, "+5511999999999", ev.Phone)
	assert.Equal(t, KindGrant, ev.Kind)
}

func TestNormalizeDetectsYampi(t *testing.T) {
	body := []byte(`{"email":"y@example.com","name":"Ana","transaction_status":"paid"}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)

	assert.Equal(t, PlatformYampi, ev.Platform)
	assert.Equal(t, "y@example.com", ev.Email)
	assert.Equal(t, KindGrant, ev.Kind)
}

// A body carrying both customer_email and email satisfies two shapes;
// detection must resolve it as CartPanda.
func TestNormalizeDetectionOrder(t *testing.T) {
	body := []byte(`{"customer_email":"cp@example.com","customer_name":"CP","status":"paid","email":"y@example.com","name":"Y"}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)

	assert.Equal(t, PlatformCartPanda, ev.Platform)
	assert.Equal(t, "cp@example.com", ev.Email)
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	_, err := Normalize([]byte(`{"foo":"bar"}`), allPlatforms)
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)

	_, err = Normalize([]byte(`not json at all`), allPlatforms)
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)
}

func TestNormalizePlatformGate(t *testing.T) {
	body := []byte(`{"email":"y@example.com","name":"Ana","transaction_status":"paid"}`)

	_, err := Normalize(body, []string{PlatformCartPanda})

	var gateErr *PlatformNotEnabledError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, PlatformYampi, gateErr.Platform)
}

func TestNormalizeMissingFields(t *testing.T) {
	var missing *MissingFieldError

	_, err := Normalize([]byte(`{"customer_email":"  ","customer_name":"Jo","status":"paid"}`), allPlatforms)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "email", missing.Field)

	_, err = Normalize([]byte(`{"customer_email":"a@x.com","status":"paid"}`), allPlatforms)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "full_name", missing.Field)
}

// Unknown signals normalize fine; the caller decides to ignore them.
func TestNormalizeUnknownSignal(t *testing.T) {
	body := []byte(`{"customer_email":"a@x.com","customer_name":"Jo","status":"cart_abandoned"}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, ev.Kind)
}

func TestNormalizeUsesEventTypeOverStatus(t *testing.T) {
	body := []byte(`{"customer_email":"a@x.com","customer_name":"Jo","event_type":"order.refunded","status":"paid"}`)

	ev, err := Normalize(body, allPlatforms)
	require.NoError(t, err)
	assert.Equal(t, KindRevoke, ev.Kind)
}

func TestClassifySignal(t *testing.T) {
	cases := []struct {
		signal string
		want   EventKind
	}{
		{"approved", KindGrant},
		{"PURCHASE_APPROVED", KindGrant},
		{"order.paid", KindGrant},
		{"completed", KindGrant},
		{"subscription_active", KindGrant},
		{"cancelled", KindRevoke},
		{"canceled", KindRevoke},
		{"order.refunded", KindRevoke},
		{"REFUND_REQUESTED", KindRevoke},
		{"chargeback.created", KindRevoke},
		{"cart_abandoned", KindUnknown},
		{"", KindUnknown},
		// revoke terms win over grant terms in a combined signal
		{"paid_then_refunded", KindRevoke},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySignal(tc.signal), "signal %q", tc.signal)
	}
}

func TestParseGenericOrder(t *testing.T) {
	o, err := ParseGenericOrder([]byte(`{"customer_email":" Buyer@Example.COM ","product_id":"p-1","status":"paid"}`))
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", o.CustomerEmail)
	assert.Equal(t, "p-1", o.ProductID)

	_, err = ParseGenericOrder([]byte(`nope`))
	assert.True(t, errors.Is(err, ErrUnrecognizedPayload))
}
