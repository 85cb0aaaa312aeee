// Package wallet implements the mint.Wallet capability with a local keypair
// and a Solana JSON-RPC client. The mobile build delegates these operations
// to the platform wallet adapter; headless builds sign with a Solana CLI
// style keypair file instead.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/claude/stoicmint/internal/mint"
)

// Local signs with a keypair loaded from disk and talks to one RPC endpoint.
type Local struct {
	key            solana.PrivateKey
	client         *rpc.Client
	confirmTimeout time.Duration
	confirmPoll    time.Duration
	log            *slog.Logger
}

// Options tune confirmation polling. Zero values pick the defaults.
type Options struct {
	ConfirmTimeout time.Duration // default 30s
	ConfirmPoll    time.Duration // default 1s
}

// Open loads the keypair at keypairPath (Solana CLI JSON byte-array format)
// and connects an RPC client to endpoint.
func Open(endpoint, keypairPath string, opts Options, log *slog.Logger) (*Local, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("loading keypair %s: %w", keypairPath, err)
	}
	if opts.ConfirmTimeout == 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.ConfirmPoll == 0 {
		opts.ConfirmPoll = time.Second
	}
	return &Local{
		key:            key,
		client:         rpc.New(endpoint),
		confirmTimeout: opts.ConfirmTimeout,
		confirmPoll:    opts.ConfirmPoll,
		log:            log,
	}, nil
}

// ConnectedAccount returns the keypair's public key. A loaded local wallet is
// always connected.
func (l *Local) ConnectedAccount() (solana.PublicKey, bool) {
	return l.key.PublicKey(), true
}

// Balance returns the account balance in lamports at confirmed commitment.
func (l *Local) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := l.client.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("querying balance: %w", err)
	}
	return out.Value, nil
}

// RentExemptBalance returns the rent-exempt minimum for an account of the
// given size.
func (l *Local) RentExemptBalance(ctx context.Context, space uint64) (uint64, error) {
	lamports, err := l.client.GetMinimumBalanceForRentExemption(ctx, space, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("querying rent exemption: %w", err)
	}
	return lamports, nil
}

// LatestBlockRef fetches the latest blockhash and the slot it was observed at.
func (l *Local) LatestBlockRef(ctx context.Context) (mint.BlockRef, error) {
	out, err := l.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return mint.BlockRef{}, fmt.Errorf("querying latest blockhash: %w", err)
	}
	return mint.BlockRef{
		Blockhash:            out.Value.Blockhash,
		Slot:                 out.Context.Slot,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// SignAndSend adds the payer signature and submits the transaction. The mint
// identity co-signature is already present when the pipeline hands the
// transaction over.
func (l *Local) SignAndSend(ctx context.Context, tx *solana.Transaction, slotHint uint64) (solana.Signature, error) {
	payer := l.key.PublicKey()
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &l.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("signing transaction: %w", err)
	}

	sig, err := l.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
		MinContextSlot:      &slotHint,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sending transaction: %w", err)
	}
	return sig, nil
}

// Confirm polls signature status until confirmed commitment or the timeout
// ceiling. A transaction error reported by the cluster is returned as-is; an
// elapsed ceiling returns mint.ErrConfirmTimeout since the transaction may
// still land.
func (l *Local) Confirm(ctx context.Context, sig solana.Signature, ref mint.BlockRef) error {
	ctx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(l.confirmPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("awaiting signature %s: %w", sig, mint.ErrConfirmTimeout)
		case <-ticker.C:
		}

		out, err := l.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			l.log.Warn("signature status query failed, will poll again", "error", err)
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}
		status := out.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on-chain: %v", sig, status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
}
