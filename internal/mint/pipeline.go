// Package mint builds, signs, submits, and confirms the on-chain transaction
// that turns a completed workout into a badge token: a zero-decimal SPL mint
// with exactly one unit issued to the connected wallet.
package mint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/google/uuid"

	"github.com/claude/stoicmint/internal/history"
)

// mintAccountSize is the byte size of the SPL token mint account layout.
const mintAccountSize = 82

// DefaultMinBalanceLamports is the empirical floor for a mint attempt:
// rent exemption for the mint account plus transaction fees, with headroom.
const DefaultMinBalanceLamports = 3_000_000 // 0.003 SOL

// ErrConfirmTimeout is returned by WalletCapability.Confirm when the ceiling
// elapses without the signature reaching confirmed commitment. The
// transaction may still land afterwards.
var ErrConfirmTimeout = errors.New("confirmation timed out")

// BlockRef is a recent ledger checkpoint bounding a transaction's validity
// window.
type BlockRef struct {
	Blockhash            solana.Hash
	Slot                 uint64
	LastValidBlockHeight uint64
}

// Wallet is the capability the pipeline consumes. The account, the RPC
// connection, and the user-approval signing step are all owned outside this
// package; tests substitute a fake.
type Wallet interface {
	// ConnectedAccount returns the wallet's public key, or false when no
	// account is connected.
	ConnectedAccount() (solana.PublicKey, bool)
	// Balance returns the account balance in lamports.
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	// RentExemptBalance returns the minimum lamports an account of the given
	// size must hold to persist on the ledger.
	RentExemptBalance(ctx context.Context, space uint64) (uint64, error)
	// LatestBlockRef fetches the blockhash and slot used to bound the
	// transaction.
	LatestBlockRef(ctx context.Context) (BlockRef, error)
	// SignAndSend adds the payer signature and submits the transaction. This
	// is where user-facing wallet approval happens.
	SignAndSend(ctx context.Context, tx *solana.Transaction, slotHint uint64) (solana.Signature, error)
	// Confirm waits for the signature to reach confirmed commitment, or
	// returns ErrConfirmTimeout.
	Confirm(ctx context.Context, sig solana.Signature, ref BlockRef) error
}

// Result is reported back to the caller, which is responsible for recording
// it in the history store. The pipeline never mutates local history itself.
type Result struct {
	MintAddress string `json:"mintAddress"`
	Signature   string `json:"signature"`
}

// Pipeline is stateless mint orchestration. It performs no internal retries:
// every failure aborts the invocation, and a retry starts the sequence over
// with a fresh mint key.
type Pipeline struct {
	wallet     Wallet
	minBalance uint64
	log        *slog.Logger
}

// NewPipeline creates a pipeline over the given wallet capability.
// minBalanceLamports of 0 selects DefaultMinBalanceLamports.
func NewPipeline(wallet Wallet, minBalanceLamports uint64, log *slog.Logger) *Pipeline {
	if minBalanceLamports == 0 {
		minBalanceLamports = DefaultMinBalanceLamports
	}
	return &Pipeline{wallet: wallet, minBalance: minBalanceLamports, log: log}
}

// Mint executes the full sequence for one completed workout and returns the
// new mint's address and the transaction signature, or a classified failure.
//
// The four instructions are built in a fixed order that the token program
// requires: the mint account must exist before it is initialized, the mint
// must be initialized before the associated token account references it, and
// the token account must exist before anything is minted into it.
func (p *Pipeline) Mint(ctx context.Context, completed history.CompletedWorkout) (*Result, *Error) {
	owner, ok := p.wallet.ConnectedAccount()
	if !ok {
		return nil, &Error{Kind: KindNotConnected, Step: "connect"}
	}

	attempt := uuid.NewString()
	p.log.Info("mint attempt starting",
		"attempt", attempt,
		"workout", completed.WorkoutID,
		"wallet", owner.String(),
	)

	balance, err := p.wallet.Balance(ctx, owner)
	if err != nil {
		return nil, classify("balance", err)
	}
	if balance < p.minBalance {
		return nil, &Error{
			Kind:     KindInsufficientBalance,
			Step:     "balance",
			Required: p.minBalance,
			Actual:   balance,
		}
	}

	// Single-use mint identity. Never persisted or reused; it exists only to
	// co-sign the creation of its own account in this transaction.
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Step: "keygen", Err: err}
	}
	mintPub := mintKey.PublicKey()

	rent, err := p.wallet.RentExemptBalance(ctx, mintAccountSize)
	if err != nil {
		return nil, classify("rent", err)
	}

	// Pure address derivation, no network round trip.
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mintPub)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Step: "derive-ata", Err: err}
	}

	ref, err := p.wallet.LatestBlockRef(ctx)
	if err != nil {
		return nil, classify("blockhash", err)
	}

	instrs := []solana.Instruction{
		system.NewCreateAccountInstruction(rent, mintAccountSize, token.ProgramID, owner, mintPub).Build(),
		// Zero decimals encodes one indivisible unit. Mint and freeze
		// authority both stay with the wallet.
		token.NewInitializeMint2Instruction(0, owner, owner, mintPub).Build(),
		associatedtokenaccount.NewCreateInstruction(owner, owner, mintPub).Build(),
		token.NewMintToInstruction(1, mintPub, ata, owner, nil).Build(),
	}

	tx, err := solana.NewTransaction(instrs, ref.Blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Step: "build", Err: err}
	}

	// Co-sign with the mint key only. The payer signature comes from the
	// wallet capability during SignAndSend.
	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(mintPub) {
			return &mintKey
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Step: "cosign", Err: err}
	}

	sig, err := p.wallet.SignAndSend(ctx, tx, ref.Slot)
	if err != nil {
		return nil, classify("sign-and-send", err)
	}

	if err := p.wallet.Confirm(ctx, sig, ref); err != nil {
		if errors.Is(err, ErrConfirmTimeout) {
			return nil, &Error{Kind: KindConfirmationTimeout, Step: "confirm", Err: err}
		}
		return nil, classify("confirm", err)
	}

	p.log.Info("mint confirmed",
		"attempt", attempt,
		"workout", completed.WorkoutID,
		"mint", mintPub.String(),
		"signature", sig.String(),
	)
	return &Result{MintAddress: mintPub.String(), Signature: sig.String()}, nil
}

func lamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
