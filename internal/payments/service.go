// Package payments runs the single, bulk and opt-in transfer flows end to end.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/balance"
	"github.com/congo-pay/algopay/internal/eligibility"
	"github.com/congo-pay/algopay/internal/journal"
	"github.com/congo-pay/algopay/internal/metrics"
	"github.com/congo-pay/algopay/internal/node"
	"github.com/congo-pay/algopay/internal/notification"
	"github.com/congo-pay/algopay/internal/submit"
	"github.com/congo-pay/algopay/internal/txbuild"
)

// Status of a submitted transfer.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
)

// Session yields the connected account.
type Session interface {
	Require() (string, error)
}

// ParamsReader fetches network parameters.
type ParamsReader interface {
	Params(ctx context.Context) (node.Params, error)
}

// AssetInfoReader resolves asset ids missing from the registry.
type AssetInfoReader interface {
	AssetInfo(ctx context.Context, id uint64) (balance.Info, error)
}

// Deps are the collaborators of a Service. Assets, Journal, Notifier and
// Metrics are optional.
type Deps struct {
	Session     Session
	Registry    *asset.Registry
	Assets      AssetInfoReader
	Checker     *eligibility.Checker
	Node        ParamsReader
	Broadcaster *submit.Broadcaster
	Waiter      *submit.Waiter
	Journal     journal.Journal
	Notifier    notification.Notifier
	Metrics     *metrics.Metrics
	MaxRounds   uint64
	Logger      *slog.Logger
}

// Service coordinates validation, eligibility, building, signing, broadcast
// and confirmation.
type Service struct {
	Deps

	// submitMu keeps one signer round trip in flight at a time.
	submitMu sync.Mutex
}

// NewService constructs a payment service.
func NewService(d Deps) *Service {
	if d.Registry == nil {
		d.Registry = asset.DefaultRegistry()
	}
	if d.MaxRounds == 0 {
		d.MaxRounds = submit.DefaultMaxRounds
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{Deps: d}
}

// PaymentRequest is a single transfer in human units.
type PaymentRequest struct {
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Asset     string  `json:"asset"`
}

// Recipient is one untrusted bulk entry.
type Recipient struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`

	malformed error
}

// BulkRequest sends one asset to many recipients in a single atomic group.
type BulkRequest struct {
	Recipients []Recipient `json:"recipients"`
	Asset      string      `json:"asset"`
}

// Rejection records why a bulk entry was left out.
type Rejection struct {
	Index  int       `json:"index"`
	Input  Recipient `json:"input"`
	Kind   Kind      `json:"kind"`
	Reason string    `json:"reason"`
}

// Result describes a submitted transfer.
type Result struct {
	TxID           string      `json:"tx_id"`
	GroupID        string      `json:"group_id,omitempty"`
	Status         string      `json:"status"`
	ConfirmedRound uint64      `json:"confirmed_round,omitempty"`
	Sender         string      `json:"sender"`
	Asset          asset.Asset `json:"asset"`
}

// BulkResult adds the screening outcome to a Result.
type BulkResult struct {
	Result
	Processed  int         `json:"processed"`
	Rejections []Rejection `json:"rejections"`
}

// SendPayment transfers req.Amount of req.Asset from the connected account.
func (s *Service) SendPayment(ctx context.Context, req PaymentRequest) (Result, error) {
	sender, err := s.Session.Require()
	if err != nil {
		return Result{}, fail("", err)
	}

	recipient, err := address.Normalize(req.Recipient)
	if err != nil {
		return Result{}, fail("recipient", err)
	}
	if err := amount.Validate(req.Amount); err != nil {
		return Result{}, fail("amount", err)
	}
	a, err := s.resolve(ctx, req.Asset)
	if err != nil {
		return Result{}, err
	}
	units, err := amount.ToBaseUnits(req.Amount, a.Decimals)
	if err != nil {
		return Result{}, fail("amount", err)
	}

	if !a.IsNative() {
		if err := s.Checker.Probe(ctx, recipient, a); err != nil {
			return Result{}, fail("", err)
		}
	}

	params, err := s.params(ctx)
	if err != nil {
		return Result{}, err
	}
	txn, err := txbuild.Build(txbuild.Intent{Sender: sender, Recipient: recipient, Amount: req.Amount, Asset: a}, params)
	if err != nil {
		return Result{}, fail("build transfer", err)
	}

	return s.execute(ctx, flow{
		kind:       journal.KindPayment,
		sender:     sender,
		asset:      a,
		recipients: []string{recipient},
		units:      units,
		txns:       []types.Transaction{txn},
		notice:     notification.KindPaymentConfirmed,
		body:       fmt.Sprintf("%s %s sent to %s", strconv.FormatFloat(req.Amount, 'f', -1, 64), a.Symbol, address.Short(recipient)),
	})
}

// SendBulkPayment screens req.Recipients, then sends every accepted entry as
// one atomic group. Rejected entries are reported and never fail the call on
// their own.
func (s *Service) SendBulkPayment(ctx context.Context, req BulkRequest) (BulkResult, error) {
	sender, err := s.Session.Require()
	if err != nil {
		return BulkResult{}, fail("", err)
	}
	a, err := s.resolve(ctx, req.Asset)
	if err != nil {
		return BulkResult{}, err
	}

	accepted, rejections, err := s.Screen(ctx, req.Recipients, a)
	if err != nil {
		return BulkResult{}, err
	}
	for _, r := range rejections {
		s.Metrics.ObserveRejection(string(r.Kind))
	}
	out := BulkResult{Rejections: rejections}
	if len(accepted) == 0 {
		return out, &Error{Kind: KindNoValidRecipients, Message: "no valid recipients", Err: ErrNoValidRecipients}
	}
	if len(accepted) > txbuild.MaxGroupSize {
		return out, fail(fmt.Sprintf("%d recipients", len(accepted)), txbuild.ErrGroupTooLarge)
	}

	params, err := s.params(ctx)
	if err != nil {
		return out, err
	}
	txns := make([]types.Transaction, 0, len(accepted))
	addrs := make([]string, 0, len(accepted))
	var total uint64
	repeats := make(map[string]int, len(accepted))
	for i, r := range accepted {
		in := txbuild.Intent{Sender: sender, Recipient: r.Address, Amount: r.Amount, Asset: a}
		// Identical entries would share a transaction id, which the ledger
		// refuses inside one group; a note on each repeat keeps them apart.
		units, _ := amount.ToBaseUnits(r.Amount, a.Decimals)
		key := r.Address + "/" + strconv.FormatUint(units, 10)
		if repeats[key] > 0 {
			in.Note = []byte(fmt.Sprintf("bulk entry %d", i))
		}
		repeats[key]++

		txn, err := txbuild.Build(in, params)
		if err != nil {
			return out, fail("build transfer", err)
		}
		txns = append(txns, txn)
		addrs = append(addrs, r.Address)
		total += txbuild.Units(txn)
	}
	grouped, err := txbuild.Group(txns)
	if err != nil {
		return out, fail("group transfers", err)
	}

	res, err := s.execute(ctx, flow{
		kind:       journal.KindBulk,
		sender:     sender,
		asset:      a,
		recipients: addrs,
		units:      total,
		txns:       grouped,
		notice:     notification.KindBulkConfirmed,
		body:       fmt.Sprintf("%s sent to %d recipients", a.Symbol, len(addrs)),
	})
	out.Result = res
	if res.TxID != "" {
		out.Processed = len(grouped)
	}
	return out, err
}

// Screen validates every recipient and, for non-native assets, probes each one
// in order. Malformed, not-opted-in and unfunded entries are rejected; any
// other probe failure aborts screening. All probes finish before building.
func (s *Service) Screen(ctx context.Context, recipients []Recipient, a asset.Asset) ([]Recipient, []Rejection, error) {
	accepted := make([]Recipient, 0, len(recipients))
	rejections := make([]Rejection, 0)
	reject := func(i int, r Recipient, err error) {
		rejections = append(rejections, Rejection{Index: i, Input: r, Kind: classify(err), Reason: err.Error()})
	}

	for i, r := range recipients {
		if r.malformed != nil {
			reject(i, r, r.malformed)
			continue
		}
		addr, err := address.Normalize(r.Address)
		if err != nil {
			reject(i, r, err)
			continue
		}
		if err := amount.Validate(r.Amount); err != nil {
			reject(i, r, err)
			continue
		}
		if _, err := amount.ToBaseUnits(r.Amount, a.Decimals); err != nil {
			reject(i, r, err)
			continue
		}
		if !a.IsNative() {
			err := s.Checker.Probe(ctx, addr, a)
			switch {
			case err == nil:
			case errors.Is(err, eligibility.ErrNotOptedIn), errors.Is(err, eligibility.ErrRecipientUnfunded):
				reject(i, r, err)
				continue
			default:
				return nil, nil, fail(fmt.Sprintf("check recipient %d", i), err)
			}
		}
		accepted = append(accepted, Recipient{Address: addr, Amount: r.Amount})
	}
	return accepted, rejections, nil
}

// OptIn opts the connected account in to the selected asset.
func (s *Service) OptIn(ctx context.Context, selector string) (Result, error) {
	sender, err := s.Session.Require()
	if err != nil {
		return Result{}, fail("", err)
	}
	a, err := s.resolve(ctx, selector)
	if err != nil {
		return Result{}, err
	}
	if a.IsNative() {
		return Result{}, &Error{Kind: KindValidation, Message: "the native asset needs no opt-in", Err: txbuild.ErrInvalidIntent}
	}

	params, err := s.params(ctx)
	if err != nil {
		return Result{}, err
	}
	txn, err := txbuild.BuildOptIn(sender, a, params)
	if err != nil {
		return Result{}, fail("build opt-in", err)
	}

	return s.execute(ctx, flow{
		kind:       journal.KindOptIn,
		sender:     sender,
		asset:      a,
		recipients: []string{sender},
		txns:       []types.Transaction{txn},
		notice:     notification.KindAssetOptIn,
		body:       fmt.Sprintf("opted in to %s", a),
	})
}

// resolve maps a selector to an asset, falling back to node metadata for
// numeric ids outside the registry.
func (s *Service) resolve(ctx context.Context, selector string) (asset.Asset, error) {
	a, err := s.Registry.Resolve(selector)
	if err == nil {
		return a, nil
	}
	id, convErr := strconv.ParseUint(strings.TrimSpace(selector), 10, 64)
	if !errors.Is(err, asset.ErrUnknownAsset) || convErr != nil || s.Assets == nil {
		return asset.Asset{}, fail("asset", err)
	}
	info, infoErr := s.Assets.AssetInfo(ctx, id)
	if infoErr != nil {
		if errors.Is(infoErr, node.ErrNotFound) {
			return asset.Asset{}, fail("asset", fmt.Errorf("%w: %d", asset.ErrUnknownAsset, id))
		}
		return asset.Asset{}, fail("fetch asset metadata", infoErr)
	}
	return asset.Asset{ID: info.ID, Symbol: info.Symbol, Name: info.Name, Decimals: info.Decimals}, nil
}

func (s *Service) params(ctx context.Context) (types.SuggestedParams, error) {
	p, err := s.Node.Params(ctx)
	if err != nil {
		return types.SuggestedParams{}, fail("fetch network parameters", err)
	}
	return txbuild.SuggestedParams(p), nil
}

type flow struct {
	kind       journal.Kind
	sender     string
	asset      asset.Asset
	recipients []string
	units      uint64
	txns       []types.Transaction
	notice     string
	body       string
}

// execute signs, broadcasts and waits. Once the sign request is dispatched the
// side effects stand regardless of ctx.
func (s *Service) execute(ctx context.Context, f flow) (Result, error) {
	log := s.Logger.With("kind", f.kind, "sender", f.sender, "asset_id", f.asset.ID)

	ctx = context.WithoutCancel(ctx)

	s.submitMu.Lock()
	sub, err := s.Broadcaster.Submit(ctx, f.txns, f.sender)
	s.submitMu.Unlock()
	if err != nil {
		pe := fail("submit", err)
		s.Metrics.ObserveSubmission(string(f.kind), f.asset.Symbol, string(pe.Kind))
		log.Warn("submission failed", "error", err)
		return Result{}, pe
	}

	res := Result{TxID: sub.TxID, GroupID: sub.GroupID, Status: StatusPending, Sender: f.sender, Asset: f.asset}
	s.record(ctx, journal.Entry{
		TxID:       sub.TxID,
		Kind:       f.kind,
		Sender:     f.sender,
		AssetID:    f.asset.ID,
		Recipients: f.recipients,
		TotalUnits: f.units,
		GroupID:    sub.GroupID,
	}, log)

	start := time.Now()
	conf, err := s.Waiter.AwaitConfirmation(ctx, sub.TxID, s.MaxRounds)
	s.Metrics.ObserveConfirmationWait(time.Since(start))

	switch {
	case err == nil:
		res.Status = StatusConfirmed
		res.ConfirmedRound = conf.ConfirmedRound
		s.resolveEntry(ctx, sub.TxID, journal.Outcome{Status: journal.StatusConfirmed, ConfirmedRound: conf.ConfirmedRound}, log)
		s.notify(ctx, notification.Message{Kind: f.notice, Destination: f.sender, TxID: sub.TxID, Body: f.body}, log)
		s.Metrics.ObserveSubmission(string(f.kind), f.asset.Symbol, StatusConfirmed)
		log.Info("transfer confirmed", "tx_id", sub.TxID, "round", conf.ConfirmedRound)
		return res, nil

	case errors.Is(err, submit.ErrConfirmationTimeout):
		s.resolveEntry(ctx, sub.TxID, journal.Outcome{Status: journal.StatusTimedOut, Error: err.Error()}, log)
		s.notify(ctx, notification.Message{Kind: notification.KindPaymentPending, Destination: f.sender, TxID: sub.TxID, Body: f.body}, log)
		s.Metrics.ObserveSubmission(string(f.kind), f.asset.Symbol, StatusPending)
		log.Warn("transfer not confirmed in time", "tx_id", sub.TxID, "rounds", s.MaxRounds)
		return res, &Error{
			Kind:    KindConfirmationTimeout,
			Message: fmt.Sprintf("transaction %s was submitted but not confirmed within %d rounds; it may still commit", sub.TxID, s.MaxRounds),
			Err:     err,
		}

	case errors.Is(err, submit.ErrBroadcastRejected):
		s.resolveEntry(ctx, sub.TxID, journal.Outcome{Status: journal.StatusRejected, Error: err.Error()}, log)
		s.Metrics.ObserveSubmission(string(f.kind), f.asset.Symbol, string(KindBroadcastRejected))
		log.Warn("transfer dropped from pool", "tx_id", sub.TxID, "error", err)
		return Result{}, fail("", err)

	default:
		s.Metrics.ObserveSubmission(string(f.kind), f.asset.Symbol, string(KindInternal))
		log.Error("confirmation wait failed", "tx_id", sub.TxID, "error", err)
		return res, fail("await confirmation", err)
	}
}

func (s *Service) record(ctx context.Context, e journal.Entry, log *slog.Logger) {
	if s.Journal == nil {
		return
	}
	if _, err := s.Journal.Record(ctx, e); err != nil {
		log.Error("journal record failed", "tx_id", e.TxID, "error", err)
	}
}

func (s *Service) resolveEntry(ctx context.Context, txID string, o journal.Outcome, log *slog.Logger) {
	if s.Journal == nil {
		return
	}
	if _, err := s.Journal.Resolve(ctx, txID, o); err != nil {
		log.Error("journal update failed", "tx_id", txID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message, log *slog.Logger) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, msg); err != nil {
		log.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}
