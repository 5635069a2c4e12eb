package payments

import (
	"testing"

	"github.com/shopspring/decimal"
)

const (
	testTRC20 = "TREBy39rXoWMTfuZcobHNR49EKfnXPbbdE"
	testTON   = "UQC337PVpq0748IOjdbQWJlVjDMIdkENC5iimBrexCikKyYo"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(testTRC20, testTON)
	if err != nil {
		t.Fatalf("expected valid registry, got: %v", err)
	}

	for _, name := range reg.Names() {
		m, err := reg.Get(name)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
		if m.Address == "" {
			t.Errorf("method %q has empty address", name)
		}
	}

	if _, err := reg.Get("BTC"); err == nil {
		t.Error("expected error for unregistered method")
	}
}

func TestNewRegistryRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name  string
		trc20 string
		ton   string
	}{
		{"short trc20", "T123", testTON},
		{"wrong prefix", "XREBy39rXoWMTfuZcobHNR49EKfnXPbbdE", testTON},
		{"non-base58 trc20", "TREBy39rXoWMTfuZcobHNR49EKfnXPbbd0", testTON},
		{"garbage ton", testTRC20, "not-a-ton-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.trc20, tt.ton); err == nil {
				t.Errorf("NewRegistry(%q, %q) should fail", tt.trc20, tt.ton)
			}
		})
	}
}

func TestTransferURI(t *testing.T) {
	reg, err := NewRegistry(testTRC20, testTON)
	if err != nil {
		t.Fatal(err)
	}

	ton, _ := reg.Get(MethodTON)
	uri := TransferURI(ton, decimal.RequireFromString("1.5"))
	want := "ton://transfer/" + testTON + "?amount=1500000000"
	if uri != want {
		t.Errorf("TON uri = %q, want %q", uri, want)
	}

	trc20, _ := reg.Get(MethodUSDTTRC20)
	uri = TransferURI(trc20, decimal.RequireFromString("50.25"))
	want = testTRC20 + "?amount=50.25"
	if uri != want {
		t.Errorf("TRC20 uri = %q, want %q", uri, want)
	}
}
