package avdecc

import (
	"testing"

	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
)

func TestDefaultConfigMatchesPackageDefault(t *testing.T) {
	got := DefaultConfig()
	want := avdeccconfig.Default()
	if got != want {
		t.Fatalf("DefaultConfig() = %+v, want %+v", got, want)
	}
}
