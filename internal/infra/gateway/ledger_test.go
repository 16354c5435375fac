package gateway

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/singhaditya73/MediFlow/internal/domain"
)

type fakeRPCError struct {
	code int
	msg  string
}

func (e fakeRPCError) Error() string  { return e.msg }
func (e fakeRPCError) ErrorCode() int { return e.code }

func TestMapLedgerError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"rpc code 4001", fakeRPCError{code: 4001, msg: "request rejected"}, domain.ErrUserCancelled},
		{"user rejected text", errors.New("MetaMask Tx Signature: User rejected transaction"), domain.ErrUserCancelled},
		{"user denied text", errors.New("user denied transaction signature"), domain.ErrUserCancelled},
		{"action rejected code text", errors.New("provider error ACTION_REJECTED"), domain.ErrUserCancelled},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), domain.ErrInsufficientFunds},
		{"ownership revert", errors.New("execution reverted: Not the record owner"), domain.ErrNotOwner},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connection refused"), domain.ErrNetworkUnavailable},
		{"dns failure", errors.New("dial tcp: lookup rpc.invalid: no such host"), domain.ErrNetworkUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapLedgerError(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMapLedgerErrorKeepsUnknownReason(t *testing.T) {
	got := mapLedgerError(errors.New("execution reverted: Record already exists"))
	if !errors.Is(got, domain.LedgerError{}) {
		t.Fatalf("expected a LedgerError, got %v", got)
	}
	if !strings.Contains(got.Error(), "Record already exists") {
		t.Fatalf("raw revert reason must survive, got %q", got.Error())
	}
}

func TestMapLedgerErrorNil(t *testing.T) {
	if err := mapLedgerError(nil); err != nil {
		t.Fatalf("nil must pass through, got %v", err)
	}
}

func TestContractABIsParse(t *testing.T) {
	for name, raw := range map[string]string{
		"access control": accessControlABI,
		"audit log":      auditLogABI,
	} {
		if _, err := abi.JSON(strings.NewReader(raw)); err != nil {
			t.Fatalf("%s abi does not parse: %v", name, err)
		}
	}
}

func TestAccessControlABIMethods(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(accessControlABI))
	if err != nil {
		t.Fatalf("abi parse failed: %v", err)
	}
	for _, method := range []string{"registerRecord", "grantAccess", "revokeAccess", "hasAccess", "getAccess"} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Fatalf("missing method %s", method)
		}
	}
	if len(parsed.Methods["getAccess"].Outputs) != 5 {
		t.Fatalf("getAccess must return 5 values, got %d", len(parsed.Methods["getAccess"].Outputs))
	}
}

func TestRecordKeyIsDeterministic(t *testing.T) {
	a := recordKey("record-001")
	b := recordKey("record-001")
	c := recordKey("record-002")
	if a != b {
		t.Fatal("same id must derive the same key")
	}
	if a == c {
		t.Fatal("distinct ids must derive distinct keys")
	}
}

func TestConvertReceipt(t *testing.T) {
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     21000,
		BlockNumber: big.NewInt(42),
	}
	out := convertReceipt(receipt)
	if out.GasUsed != 21000 {
		t.Fatalf("gas used lost: %d", out.GasUsed)
	}
	if out.BlockNumber != 42 {
		t.Fatalf("block number lost: %d", out.BlockNumber)
	}
	if !strings.HasPrefix(out.TxHash, "0x") {
		t.Fatalf("tx hash must be hex-encoded, got %q", out.TxHash)
	}
}
