package gateway

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/config"
	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/usecase"
)

const accessControlABI = `[
	{"type":"function","name":"registerRecord","stateMutability":"nonpayable","inputs":[{"name":"recordId","type":"bytes32"},{"name":"contentHash","type":"string"}],"outputs":[]},
	{"type":"function","name":"grantAccess","stateMutability":"nonpayable","inputs":[{"name":"recordId","type":"bytes32"},{"name":"receiver","type":"address"},{"name":"level","type":"uint8"},{"name":"expiresAt","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"revokeAccess","stateMutability":"nonpayable","inputs":[{"name":"recordId","type":"bytes32"},{"name":"receiver","type":"address"}],"outputs":[]},
	{"type":"function","name":"hasAccess","stateMutability":"view","inputs":[{"name":"recordId","type":"bytes32"},{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getAccess","stateMutability":"view","inputs":[{"name":"recordId","type":"bytes32"},{"name":"user","type":"address"}],"outputs":[{"name":"granter","type":"address"},{"name":"level","type":"uint8"},{"name":"expiresAt","type":"uint64"},{"name":"isActive","type":"bool"},{"name":"grantedAt","type":"uint64"}]}
]`

const auditLogABI = `[
	{"type":"function","name":"logAudit","stateMutability":"nonpayable","inputs":[{"name":"recordId","type":"bytes32"},{"name":"action","type":"string"},{"name":"metadata","type":"string"}],"outputs":[]},
	{"type":"function","name":"getRecordAudits","stateMutability":"view","inputs":[{"name":"recordId","type":"bytes32"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getAuditEntry","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"recordId","type":"bytes32"},{"name":"user","type":"address"},{"name":"action","type":"string"},{"name":"timestamp","type":"uint256"},{"name":"metadata","type":"string"},{"name":"previousHash","type":"bytes32"}]}
]`

// LedgerGateway talks to the two on-ledger contracts. All mutating calls are
// signed with the configured key and waited on until mined or the confirm
// timeout fires.
type LedgerGateway struct {
	client         *ethclient.Client
	accessControl  *bind.BoundContract
	auditLog       *bind.BoundContract
	signer         *bind.TransactOpts
	confirmTimeout time.Duration
}

func NewLedgerGateway(conf config.Ledger) (*LedgerGateway, error) {

	client, err := ethclient.Dial(conf.RPCURL)
	if err != nil {
		return nil, errors.Wrap(domain.ErrNetworkUnavailable, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(domain.ErrNetworkUnavailable, err.Error())
	}
	supported := false
	for _, id := range conf.ChainIDs {
		if chainID.Int64() == id {
			supported = true
			break
		}
	}
	if !supported {
		return nil, errors.Wrapf(domain.ErrWrongNetwork, "chain id %d", chainID.Int64())
	}

	key, err := crypto.HexToECDSA(conf.PrivateKey)
	if err != nil {
		return nil, err
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}

	acABI, err := abi.JSON(strings.NewReader(accessControlABI))
	if err != nil {
		return nil, err
	}
	alABI, err := abi.JSON(strings.NewReader(auditLogABI))
	if err != nil {
		return nil, err
	}

	return &LedgerGateway{
		client:         client,
		accessControl:  bind.NewBoundContract(common.HexToAddress(conf.AccessControlAddr), acABI, client, client, client),
		auditLog:       bind.NewBoundContract(common.HexToAddress(conf.AuditLogAddr), alABI, client, client, client),
		signer:         signer,
		confirmTimeout: time.Duration(conf.ConfirmTimeout) * time.Second,
	}, nil
}

// recordKey derives the contract's bytes32 key from an application record id.
func recordKey(recordID string) common.Hash {
	return crypto.Keccak256Hash([]byte(recordID))
}

func (g *LedgerGateway) RegisterRecord(ctx context.Context, recordID, contentHash string) (mediflow.TransactionReceipt, error) {
	return g.transact(ctx, g.accessControl, "registerRecord", recordKey(recordID), contentHash)
}

func (g *LedgerGateway) GrantAccess(ctx context.Context, recordID, receiver string, level mediflow.AccessLevel, expiresAt int64) (mediflow.TransactionReceipt, error) {
	return g.transact(ctx, g.accessControl, "grantAccess", recordKey(recordID), common.HexToAddress(receiver), uint8(level), uint64(expiresAt))
}

func (g *LedgerGateway) RevokeAccess(ctx context.Context, recordID, receiver string) (mediflow.TransactionReceipt, error) {
	return g.transact(ctx, g.accessControl, "revokeAccess", recordKey(recordID), common.HexToAddress(receiver))
}

func (g *LedgerGateway) HasAccess(ctx context.Context, recordID, principal string) (bool, error) {
	var out []any
	err := g.accessControl.Call(&bind.CallOpts{Context: ctx}, &out, "hasAccess", recordKey(recordID), common.HexToAddress(principal))
	if err != nil {
		return false, mapLedgerError(err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *LedgerGateway) GetAccess(ctx context.Context, recordID, principal string) (domain.LedgerAccess, error) {
	var out []any
	err := g.accessControl.Call(&bind.CallOpts{Context: ctx}, &out, "getAccess", recordKey(recordID), common.HexToAddress(principal))
	if err != nil {
		return domain.LedgerAccess{}, mapLedgerError(err)
	}

	granter := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	level := *abi.ConvertType(out[1], new(uint8)).(*uint8)
	expiresAt := *abi.ConvertType(out[2], new(uint64)).(*uint64)
	isActive := *abi.ConvertType(out[3], new(bool)).(*bool)
	grantedAt := *abi.ConvertType(out[4], new(uint64)).(*uint64)

	return domain.LedgerAccess{
		Granter:   mediflow.NormalizeAddress(granter.Hex()),
		Level:     mediflow.AccessLevel(level),
		ExpiresAt: int64(expiresAt),
		IsActive:  isActive,
		GrantedAt: int64(grantedAt),
	}, nil
}

func (g *LedgerGateway) LogAudit(ctx context.Context, recordID string, action mediflow.AuditAction, metadataJSON string) (mediflow.TransactionReceipt, error) {
	return g.transact(ctx, g.auditLog, "logAudit", recordKey(recordID), string(action), metadataJSON)
}

// ReadAuditTrail re-reads the record's full trail in ledger append order,
// oldest first. The order is never changed on the way through.
func (g *LedgerGateway) ReadAuditTrail(ctx context.Context, recordID string) ([]domain.AuditEntry, error) {
	var out []any
	err := g.auditLog.Call(&bind.CallOpts{Context: ctx}, &out, "getRecordAudits", recordKey(recordID))
	if err != nil {
		return nil, mapLedgerError(err)
	}
	indices := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)

	entries := make([]domain.AuditEntry, 0, len(indices))
	for _, index := range indices {
		var raw []any
		err := g.auditLog.Call(&bind.CallOpts{Context: ctx}, &raw, "getAuditEntry", index)
		if err != nil {
			return nil, mapLedgerError(err)
		}

		user := *abi.ConvertType(raw[1], new(common.Address)).(*common.Address)
		action := *abi.ConvertType(raw[2], new(string)).(*string)
		timestamp := *abi.ConvertType(raw[3], new(*big.Int)).(**big.Int)
		metadata := *abi.ConvertType(raw[4], new(string)).(*string)
		previousHash := *abi.ConvertType(raw[5], new([32]byte)).(*[32]byte)

		entry := domain.AuditEntry{
			RecordID:  recordID,
			UserAddr:  mediflow.NormalizeAddress(user.Hex()),
			Action:    mediflow.AuditAction(action),
			Metadata:  metadata,
			Timestamp: time.Unix(timestamp.Int64(), 0),
		}
		if previousHash != ([32]byte{}) {
			entry.PreviousHash = common.Hash(previousHash).Hex()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (g *LedgerGateway) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (mediflow.TransactionReceipt, error) {
	opts := *g.signer
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return mediflow.TransactionReceipt{}, mapLedgerError(err)
	}

	waitCtx := ctx
	if g.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.confirmTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, g.client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// submitted but unconfirmed: hand back the hash, never resubmit
			return mediflow.TransactionReceipt{TxHash: tx.Hash().Hex()}, domain.ErrConfirmationPending
		}
		return mediflow.TransactionReceipt{TxHash: tx.Hash().Hex()}, mapLedgerError(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return mediflow.TransactionReceipt{TxHash: tx.Hash().Hex()}, domain.LedgerError{Reason: "transaction reverted"}
	}

	result := convertReceipt(receipt)
	if header, err := g.client.HeaderByNumber(ctx, receipt.BlockNumber); err == nil {
		result.BlockTime = time.Unix(int64(header.Time), 0)
	}
	return result, nil
}

func convertReceipt(receipt *types.Receipt) mediflow.TransactionReceipt {
	out := mediflow.TransactionReceipt{
		TxHash:    receipt.TxHash.Hex(),
		GasUsed:   receipt.GasUsed,
		BlockHash: receipt.BlockHash.Hex(),
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out
}

// mapLedgerError folds provider failures into the failure taxonomy. Anything
// unrecognized keeps its raw reason inside a LedgerError.
func mapLedgerError(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 4001 {
		return domain.ErrUserCancelled
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "action_rejected"):
		return domain.ErrUserCancelled
	case strings.Contains(msg, "insufficient funds"):
		return domain.ErrInsufficientFunds
	case strings.Contains(msg, "not the record owner"):
		return domain.ErrNotOwner
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "i/o timeout"):
		return domain.ErrNetworkUnavailable
	}
	return domain.LedgerError{Reason: err.Error()}
}

var _ usecase.LedgerGateway = (*LedgerGateway)(nil)
