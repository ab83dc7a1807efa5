package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"type": "payment_link.payment_succeeded",
		"data": {
			"object": {
				"id": "pl_1",
				"payment_intent": "pi_1",
				"charge": "ch_1",
				"customer": "cus_1",
				"amount": 150000,
				"currency": "GNF",
				"metadata": {"draft_order_id": "6f1a72a0-9c3b-4a77-9a43-1f2d3e4c5b6a"}
			}
		}
	}`)

	event, err := ParseWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventPaymentLinkSucceeded, event.Type)
	assert.Equal(t, int64(150000), event.Data.Object.Amount)
	assert.Equal(t, "6f1a72a0-9c3b-4a77-9a43-1f2d3e4c5b6a", event.Data.Object.Metadata["draft_order_id"])
}

func TestParseWebhook_InvalidJSON(t *testing.T) {
	_, err := ParseWebhook([]byte("not json"))
	assert.Error(t, err)
}

func TestParseWebhook_MissingType(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"id": "evt_1"}`))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment_link.payment_succeeded"}`)
	secret := "whsec_test"

	signature := SignBody(body, secret)

	assert.True(t, VerifySignature(body, signature, secret))
	assert.False(t, VerifySignature(body, "deadbeef", secret))
	assert.False(t, VerifySignature([]byte("tampered"), signature, secret))
}

func TestVerifySignature_EmptySecretDisablesCheck(t *testing.T) {
	assert.True(t, VerifySignature([]byte("anything"), "", ""))
}
