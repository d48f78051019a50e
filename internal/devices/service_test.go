package devices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceInput_NormalizeTrimsAndDefaults(t *testing.T) {
	in := DeviceInput{
		Name:         "  MacBook Pro 14  ",
		SerialNumber: " C02XK1234567 ",
		Model:        " A2442 ",
	}

	require.NoError(t, in.normalize())
	require.Equal(t, "MacBook Pro 14", in.Name)
	require.Equal(t, "C02XK1234567", in.SerialNumber)
	require.Equal(t, "A2442", in.Model)
	require.Equal(t, StatusActive, in.Status)
}

func TestDeviceInput_NormalizeRejectsBlankName(t *testing.T) {
	in := DeviceInput{Name: "   "}
	require.ErrorIs(t, in.normalize(), ErrNameRequired)
}

func TestDeviceInput_NormalizeRejectsUnknownStatus(t *testing.T) {
	in := DeviceInput{Name: "Monitor", Status: "lost"}
	require.ErrorIs(t, in.normalize(), ErrInvalidStatus)
}

func TestDeviceInput_NormalizeKeepsExplicitStatus(t *testing.T) {
	in := DeviceInput{Name: "Monitor", Status: StatusInRepair}
	require.NoError(t, in.normalize())
	require.Equal(t, StatusInRepair, in.Status)
}

func TestDeviceInput_NormalizeRejectsNegativePrices(t *testing.T) {
	bad := int64(-1)
	ok := int64(120000)

	in := DeviceInput{Name: "Monitor", PurchasePriceCents: &bad}
	require.ErrorIs(t, in.normalize(), ErrNegativePrice)

	in = DeviceInput{Name: "Monitor", EstimatedValueCents: &bad}
	require.ErrorIs(t, in.normalize(), ErrNegativePrice)

	in = DeviceInput{Name: "Monitor", PurchasePriceCents: &ok, EstimatedValueCents: &ok}
	require.NoError(t, in.normalize())
}

func TestValidStatus(t *testing.T) {
	require.True(t, ValidStatus(StatusActive))
	require.True(t, ValidStatus(StatusAssigned))
	require.True(t, ValidStatus(StatusInRepair))
	require.True(t, ValidStatus(StatusRetired))
	require.True(t, ValidStatus(StatusSold))
	require.False(t, ValidStatus("lost"))
	require.False(t, ValidStatus(""))
}
