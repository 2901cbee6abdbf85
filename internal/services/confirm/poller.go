// Package confirm submits signed transactions and follows them to a terminal state:
//
//	Submitted -> Pending -> Confirmed | Failed | TimedOut
//
// Failed means the network executed the transaction and rejected it. TimedOut means
// the outcome is unknown and the transaction may still land.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

const (
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultPollInterval   = 3 * time.Second
	DefaultTimeout        = 20 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

// Client is the part of the RPC client used to send and track transactions.
type Client interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type BlockhashSource interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
}

// FreshBlockhashSource is a BlockhashSource that can avoid handing out a blockhash an
// earlier attempt already signed with. Retries use it when available.
type FreshBlockhashSource interface {
	BlockhashSource
	GetFreshBlockhash(ctx context.Context, previous solana.Hash) (solana.Hash, uint64, error)
}

// TxFactory builds and signs a transaction against blockhash. It is called once per
// submission attempt.
type TxFactory func(ctx context.Context, blockhash solana.Hash) (*solana.Transaction, error)

type Config struct {
	Commitment     rpc.CommitmentType
	MaxRetries     int
	RetryBackoff   time.Duration
	PollInterval   time.Duration
	Timeout        time.Duration
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

func DefaultConfig() Config {
	return Config{MaxRetries: DefaultMaxRetries}.withDefaults()
}

type Poller struct {
	client      Client
	blockhashes BlockhashSource
	cfg         Config
}

func NewPoller(client Client, blockhashes BlockhashSource, cfg Config) *Poller {
	return &Poller{client: client, blockhashes: blockhashes, cfg: cfg.withDefaults()}
}

// SubmitAndConfirm always returns a non-nil Confirmation. The error is a
// *domain.SubmissionError, *domain.OnchainError, *domain.TimeoutError, or the context
// error when the caller gave up; in the last case the transaction stays outstanding.
func (p *Poller) SubmitAndConfirm(ctx context.Context, build TxFactory) (*domain.Confirmation, error) {
	conf := &domain.Confirmation{Status: domain.ConfirmationStatus{State: domain.StateSubmitted}}

	if err := p.submit(ctx, build, conf); err != nil {
		return conf, err
	}

	conf.Status.State = domain.StatePending
	return conf, p.poll(ctx, conf)
}

func (p *Poller) submit(ctx context.Context, build TxFactory, conf *domain.Confirmation) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries+1; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.cfg.RetryBackoff); err != nil {
				return err
			}
			// a send that errored on our side may still have reached a leader
			if landed, ok := p.findLanded(ctx, conf.Attempts); ok {
				conf.Signature = landed
				log.Warn().Str("signature", landed.String()).Msg("[ConfirmationPoller] earlier attempt landed, skipping resend")
				return nil
			}
		}

		sig, err := p.attempt(ctx, build, attempt, conf)
		if err == nil {
			conf.Signature = sig
			metrics.SubmissionAttempts.WithLabelValues("accepted").Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fatal *buildError
		if errors.As(err, &fatal) {
			conf.Status = domain.ConfirmationStatus{State: domain.StateFailed, Reason: fatal.err.Error()}
			return fatal.err
		}

		lastErr = err
		metrics.SubmissionAttempts.WithLabelValues("error").Inc()
		log.Warn().Err(err).Int("attempt", attempt).Msg("[ConfirmationPoller] submission failed")
	}

	// the last send may have timed out on our side after reaching a leader
	if landed, ok := p.findLanded(ctx, conf.Attempts); ok {
		conf.Signature = landed
		log.Warn().Str("signature", landed.String()).Msg("[ConfirmationPoller] submission reported failure but attempt landed")
		return nil
	}

	conf.Signature = lastSigned(conf.Attempts)
	conf.Status = domain.ConfirmationStatus{State: domain.StateFailed, Reason: lastErr.Error()}
	return &domain.SubmissionError{Attempts: len(conf.Attempts), Err: lastErr}
}

// lastSigned is the newest signature handed to the network, so a caller can re-query it.
func lastSigned(attempts []domain.SubmissionAttempt) solana.Signature {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Signature != (solana.Signature{}) {
			return attempts[i].Signature
		}
	}
	return solana.Signature{}
}

// buildError is a failure to construct the transaction; retrying cannot help.
type buildError struct {
	err error
}

func (e *buildError) Error() string {
	return e.err.Error()
}

func (p *Poller) attempt(ctx context.Context, build TxFactory, n int, conf *domain.Confirmation) (solana.Signature, error) {
	rec := domain.SubmissionAttempt{Attempt: n}
	defer func() {
		conf.Attempts = append(conf.Attempts, rec)
	}()

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	blockhash, lastValid, err := p.blockhash(reqCtx, conf.Attempts)
	cancel()
	if err != nil {
		rec.Err = fmt.Errorf("fetch blockhash: %w", err)
		return solana.Signature{}, rec.Err
	}
	rec.Blockhash = blockhash
	rec.LastValidBlockHeight = lastValid

	tx, err := build(ctx, blockhash)
	if err != nil {
		rec.Err = err
		return solana.Signature{}, &buildError{err: err}
	}
	if len(tx.Signatures) > 0 {
		rec.Signature = tx.Signatures[0]
	}

	maxRetries := uint(0)
	reqCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	rec.SubmittedAt = time.Now()
	sig, err := p.client.SendTransactionWithOpts(reqCtx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: p.cfg.Commitment,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		rec.Err = err
		return solana.Signature{}, err
	}
	rec.Signature = sig

	log.Info().
		Str("signature", sig.String()).
		Int("attempt", n).
		Uint64("lastValidBlockHeight", lastValid).
		Msg("[ConfirmationPoller] transaction submitted")
	return sig, nil
}

// blockhash picks the blockhash for the next attempt. A retry signed with the same
// blockhash would produce a byte-identical transaction.
func (p *Poller) blockhash(ctx context.Context, attempts []domain.SubmissionAttempt) (solana.Hash, uint64, error) {
	fresh, ok := p.blockhashes.(FreshBlockhashSource)
	if !ok {
		return p.blockhashes.GetBlockhash(ctx)
	}
	var previous solana.Hash
	for i := len(attempts) - 1; i >= 0; i-- {
		if !attempts[i].Blockhash.IsZero() {
			previous = attempts[i].Blockhash
			break
		}
	}
	if previous.IsZero() {
		return p.blockhashes.GetBlockhash(ctx)
	}
	return fresh.GetFreshBlockhash(ctx, previous)
}

// findLanded reports a signed attempt the network already knows about.
func (p *Poller) findLanded(ctx context.Context, attempts []domain.SubmissionAttempt) (solana.Signature, bool) {
	sigs := make([]solana.Signature, 0, len(attempts))
	for _, a := range attempts {
		if a.Signature != (solana.Signature{}) {
			sigs = append(sigs, a.Signature)
		}
	}
	if len(sigs) == 0 {
		return solana.Signature{}, false
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	res, err := p.client.GetSignatureStatuses(reqCtx, false, sigs...)
	if err != nil || res == nil {
		return solana.Signature{}, false
	}
	for i, st := range res.Value {
		if st != nil && i < len(sigs) {
			return sigs[i], true
		}
	}
	return solana.Signature{}, false
}

func (p *Poller) poll(ctx context.Context, conf *domain.Confirmation) error {
	start := time.Now()
	deadline := time.NewTimer(p.cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	finish := func(state domain.ConfirmationState) {
		conf.Elapsed = time.Since(start)
		conf.Status.State = state
		metrics.Confirmations.WithLabelValues(state.String()).Inc()
		metrics.ConfirmationDuration.Observe(conf.Elapsed.Seconds())
	}

	for {
		select {
		case <-ctx.Done():
			conf.Elapsed = time.Since(start)
			return ctx.Err()

		case <-deadline.C:
			finish(domain.StateTimedOut)
			log.Warn().Str("signature", conf.Signature.String()).Dur("elapsed", conf.Elapsed).Msg("[ConfirmationPoller] confirmation timed out")
			return &domain.TimeoutError{Signature: conf.Signature, Elapsed: conf.Elapsed}

		case <-ticker.C:
			st, err := p.status(ctx, conf.Signature)
			if err != nil {
				log.Debug().Err(err).Str("signature", conf.Signature.String()).Msg("[ConfirmationPoller] status read failed")
				continue
			}
			if st == nil {
				continue
			}
			if st.Err != nil {
				conf.Slot = st.Slot
				conf.Status.Reason = fmt.Sprintf("%v", st.Err)
				finish(domain.StateFailed)
				log.Warn().Str("signature", conf.Signature.String()).Str("reason", conf.Status.Reason).Msg("[ConfirmationPoller] transaction failed")
				return &domain.OnchainError{Signature: conf.Signature, Reason: conf.Status.Reason}
			}
			if reached(st.ConfirmationStatus, p.cfg.Commitment) {
				conf.Slot = st.Slot
				finish(domain.StateConfirmed)
				log.Info().Str("signature", conf.Signature.String()).Uint64("slot", st.Slot).Dur("elapsed", conf.Elapsed).Msg("[ConfirmationPoller] transaction confirmed")
				return nil
			}
		}
	}
}

func (p *Poller) status(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	res, err := p.client.GetSignatureStatuses(reqCtx, false, sig)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// reached reports whether status is at least as strong as the target commitment.
func reached(status rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return target != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return target == rpc.CommitmentProcessed
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
