package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopIsIdempotentOnZeroValue(t *testing.T) {
	var a Advertiser
	assert.NotPanics(t, func() {
		a.Stop()
		a.Stop()
	})
}

func TestStartUnknownInterfaceFailsBeforeRegistering(t *testing.T) {
	var a Advertiser
	err := a.Start(Info{
		InstanceName:  "controller-test",
		EntityID:      0x001B210000000001,
		InterfaceName: "nonexistent-iface-xyz",
	})
	assert.Error(t, err)
}
