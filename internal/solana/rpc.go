package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the sniper.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns nil, nil if the transaction is not yet available.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil, nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash retrieves the most recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SimulateTransaction dry-runs a signed, serialized transaction.
	SimulateTransaction(ctx context.Context, tx []byte) (*SimulateResult, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	InnerInstructions []InnerInstructions
	LoadedAddresses   *LoadedAddresses
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction references accounts by index into the transaction's account keys.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte
}

// InnerInstructions are the CPI instructions emitted by top-level instruction Index.
type InnerInstructions struct {
	Index        int
	Instructions []CompiledInstruction
}

// LoadedAddresses are accounts loaded from address lookup tables (v0 transactions).
type LoadedAddresses struct {
	Writable []string
	Readonly []string
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 int64
}

// SimulateResult is the result of simulateTransaction.
type SimulateResult struct {
	Slot          int64
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}
