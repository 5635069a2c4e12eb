package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/escrowdesk/backend/internal/models"
)

// Supported payment networks. Addresses are static deposit wallets — there
// is no on-chain verification in the core.
const (
	MethodUSDTTRC20 = "USDT_TRC20"
	MethodTON       = "TON"
)

type Method struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Registry holds the configured deposit address per network. Addresses are
// validated once at construction so a typo in config fails at boot, not on
// the first deal.
type Registry struct {
	methods map[string]Method
}

func NewRegistry(trc20Addr, tonAddr string) (*Registry, error) {
	if err := validateTRC20(trc20Addr); err != nil {
		return nil, fmt.Errorf("TRC20 deposit address: %w", err)
	}
	if _, err := address.ParseAddr(tonAddr); err != nil {
		return nil, fmt.Errorf("TON deposit address %q: %w", tonAddr, err)
	}
	return &Registry{
		methods: map[string]Method{
			MethodUSDTTRC20: {Name: MethodUSDTTRC20, Address: trc20Addr},
			MethodTON:       {Name: MethodTON, Address: tonAddr},
		},
	}, nil
}

func (r *Registry) Get(name string) (Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return Method{}, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, name)
	}
	return m, nil
}

func (r *Registry) Names() []string {
	return []string{MethodUSDTTRC20, MethodTON}
}

// TransferURI builds the payment deep link the adapter renders as a QR
// code. TON amounts are expressed in nanotons per the ton:// scheme.
func TransferURI(m Method, amount decimal.Decimal) string {
	if m.Name == MethodTON {
		coins, err := tlb.FromTON(amount.String())
		if err != nil {
			return fmt.Sprintf("ton://transfer/%s", m.Address)
		}
		return fmt.Sprintf("ton://transfer/%s?amount=%s", m.Address, coins.Nano().String())
	}
	return fmt.Sprintf("%s?amount=%s", m.Address, amount.String())
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func validateTRC20(addr string) error {
	if len(addr) != 34 || !strings.HasPrefix(addr, "T") {
		return fmt.Errorf("%w: TRC20 address must be 34 base58 chars starting with T", models.ErrValidation)
	}
	for _, c := range addr {
		if !strings.ContainsRune(base58Alphabet, c) {
			return fmt.Errorf("%w: TRC20 address contains non-base58 character %q", models.ErrValidation, c)
		}
	}
	return nil
}
