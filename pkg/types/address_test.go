package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() Address {
	return Address{
		Recipient:  "Lin Chen",
		Phone:      "0912345678",
		Line1:      "12 Harbor Rd",
		City:       "Taipei",
		PostalCode: "100",
		Country:    "TW",
	}
}

func TestAddressValueScan(t *testing.T) {
	line2 := "Floor 3"
	addr := validAddress()
	addr.Line2 = &line2

	v, err := addr.Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, addr, decoded)

	var fromBytes Address
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	assert.Equal(t, "Taipei", fromBytes.City)
}

func TestAddressMissingFields(t *testing.T) {
	addr := validAddress()
	addr.Line1 = " "
	addr.Phone = ""

	assert.Equal(t, []string{"phone", "line1"}, addr.Missing())
	_, err := addr.Value()
	assert.Error(t, err)
}

func TestAddressScanNilAndBadType(t *testing.T) {
	addr := validAddress()
	require.NoError(t, addr.Scan(nil))
	assert.Equal(t, Address{}, addr)
	assert.Error(t, addr.Scan(42))
}
