package paystack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "event": "charge.success",
  "data": {
    "id": 4099260516,
    "status": "success",
    "reference": "PSK999",
    "amount": 250000,
    "currency": "NGN",
    "customer": {"email": "gateway@b.com", "first_name": "Ada", "last_name": "L"},
    "metadata": {
      "customer": {"name": "Ada Lovelace", "email": "a@b.com", "phone": "0800", "address": "Lagos"},
      "items": [
        {"productRef": "p-1", "name": "Tee", "qty": 2, "unitPrice": 1000, "size": "M", "color": "Black"},
        {"id": "p-2", "title": "Cap", "quantity": "1", "price": "500"}
      ]
    }
  }
}`

func TestVerifySignature(t *testing.T) {
	payload := []byte(samplePayload)
	secret := "sk_test_secret"
	sig := Sign(payload, secret)

	assert.True(t, VerifySignature(payload, sig, secret))
	assert.True(t, VerifySignature(payload, " "+sig+" ", secret))
	assert.False(t, VerifySignature(payload, sig, "other"))
	assert.False(t, VerifySignature(append(payload, ' '), sig, secret))
	assert.False(t, VerifySignature(payload, "", secret))
	assert.False(t, VerifySignature(payload, "not-hex", secret))
	assert.False(t, VerifySignature(payload, sig, ""))
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(samplePayload))
	require.NoError(t, err)

	assert.True(t, ev.IsSuccessfulCharge())
	assert.Equal(t, "PSK999", ev.Data.Reference)
	assert.Equal(t, 2500.0, ev.MajorAmount())
	assert.Equal(t, "charge.success:4099260516", ev.EventID())

	c := ev.Customer()
	assert.Equal(t, "a@b.com", c.Email)
	assert.Equal(t, "Ada Lovelace", c.Name)

	items := ev.OrderItems()
	require.Len(t, items, 2)
	assert.Equal(t, "p-1", items[0].ProductRef)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, "p-2", items[1].ProductRef)
	assert.Equal(t, "Cap", items[1].Name)
	assert.Equal(t, 1, items[1].Qty)
	assert.Equal(t, 500.0, items[1].UnitPrice)
}

func TestParseEvent_Fallbacks(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"status":"success","reference":"R1","amount":100,"metadata":"","customer":{"email":"gw@b.com","first_name":"Ada","last_name":"L"}}}`))
	require.NoError(t, err)
	assert.Empty(t, ev.OrderItems())
	assert.Equal(t, "gw@b.com", ev.Customer().Email)
	assert.Equal(t, "Ada L", ev.Customer().Name)
	assert.Equal(t, "charge.success:R1", ev.EventID())

	ev, err = ParseEvent([]byte(`{"event":"charge.success","data":{"status":"success","reference":"R2","metadata":"{\"items\":[{\"name\":\"Tee\"}]}"}}`))
	require.NoError(t, err)
	require.Len(t, ev.OrderItems(), 1)
	assert.Equal(t, 1, ev.OrderItems()[0].Qty)
}

func TestParseEvent_NotACharge(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"status":"failed","reference":"R3"}}`))
	require.NoError(t, err)
	assert.False(t, ev.IsSuccessfulCharge())

	ev, err = ParseEvent([]byte(`{"event":"transfer.success","data":{"status":"success"}}`))
	require.NoError(t, err)
	assert.False(t, ev.IsSuccessfulCharge())

	_, err = ParseEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
