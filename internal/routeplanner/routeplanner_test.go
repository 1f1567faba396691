package routeplanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatusIsEmptyWithNoBans(t *testing.T) {
	m := NewManager()
	status := m.GetStatus()
	assert.Nil(t, status.Class)
	assert.Nil(t, status.Details)
}

func TestGetStatusReportsBannedAddresses(t *testing.T) {
	m := NewManager()
	m.Mark("10.0.0.5", 1_700_000_000_000)

	status := m.GetStatus()
	require.NotNil(t, status.Class)
	assert.Equal(t, "RotatingIpRoutePlanner", *status.Class)
	require.NotNil(t, status.Details)
	require.Len(t, status.Details.FailingAddresses, 1)
	assert.Equal(t, "10.0.0.5", status.Details.FailingAddresses[0].Address)
	assert.Equal(t, "Inet4Address", status.Details.IPBlock.Type)
}

func TestUnmarkAddressRemovesOnlyThatAddress(t *testing.T) {
	m := NewManager()
	m.Mark("10.0.0.5", 1)
	m.Mark("10.0.0.6", 1)

	m.UnmarkAddress("10.0.0.5")
	status := m.GetStatus()
	require.Len(t, status.Details.FailingAddresses, 1)
	assert.Equal(t, "10.0.0.6", status.Details.FailingAddresses[0].Address)
}

func TestUnmarkAllAddressesClearsEverything(t *testing.T) {
	m := NewManager()
	m.Mark("10.0.0.5", 1)
	m.Mark("10.0.0.6", 1)

	m.UnmarkAllAddresses()
	status := m.GetStatus()
	assert.Nil(t, status.Class)
	assert.Nil(t, status.Details)
}
