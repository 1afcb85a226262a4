package txbuild

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/node"
)

func testParams() types.SuggestedParams {
	hash := sha256.Sum256([]byte("testnet-v1.0"))
	return SuggestedParams(node.Params{
		GenesisHash: hash[:],
		GenesisID:   "testnet-v1.0",
		LastRound:   5000,
		MinFee:      1000,
	})
}

func newAddr() string { return crypto.GenerateAccount().Address.String() }

func TestSuggestedParamsWindow(t *testing.T) {
	p := testParams()
	if p.FirstRoundValid != 5000 || p.LastRoundValid != 6000 {
		t.Fatalf("unexpected validity window %d-%d", p.FirstRoundValid, p.LastRoundValid)
	}
}

func TestBuildNativePayment(t *testing.T) {
	sender, recipient := newAddr(), newAddr()
	txn, err := Build(Intent{Sender: sender, Recipient: recipient, Amount: 2.5, Asset: asset.Native}, testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if txn.Type != types.PaymentTx {
		t.Fatalf("expected payment, got %s", txn.Type)
	}
	if txn.Amount != 2_500_000 || Units(txn) != 2_500_000 {
		t.Fatalf("expected 2500000 microAlgos, got %d", txn.Amount)
	}
	if txn.Sender.String() != sender || txn.Receiver.String() != recipient {
		t.Fatalf("unexpected parties %s -> %s", txn.Sender, txn.Receiver)
	}
	if txn.Fee < 1000 {
		t.Fatalf("fee below minimum: %d", txn.Fee)
	}
	if txn.Group != (types.Digest{}) {
		t.Fatalf("build must not assign a group")
	}
}

func TestBuildAssetTransferUsesAssetDecimals(t *testing.T) {
	gold := asset.Asset{ID: 777, Symbol: "GOLD", Decimals: 2}
	txn, err := Build(Intent{Sender: newAddr(), Recipient: newAddr(), Amount: 12.345, Asset: gold}, testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if txn.Type != types.AssetTransferTx {
		t.Fatalf("expected asset transfer, got %s", txn.Type)
	}
	if uint64(txn.XferAsset) != 777 || txn.AssetAmount != 1234 {
		t.Fatalf("unexpected transfer of %d units of %d", txn.AssetAmount, txn.XferAsset)
	}
}

func TestBuildRechecksInputs(t *testing.T) {
	good := newAddr()
	cases := []struct {
		name string
		in   Intent
	}{
		{"bad sender", Intent{Sender: "nope", Recipient: good, Amount: 1, Asset: asset.Native}},
		{"bad recipient", Intent{Sender: good, Recipient: "nope", Amount: 1, Asset: asset.Native}},
		{"zero amount", Intent{Sender: good, Recipient: good, Amount: 0, Asset: asset.Native}},
		{"dust", Intent{Sender: good, Recipient: good, Amount: 0.0000001, Asset: asset.Native}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.in, testParams()); !errors.Is(err, ErrInvalidIntent) {
				t.Fatalf("expected ErrInvalidIntent, got %v", err)
			}
		})
	}
	_, err := Build(Intent{Sender: good, Recipient: good, Amount: -1, Asset: asset.Native}, testParams())
	if !errors.Is(err, amount.ErrNotPositive) {
		t.Fatalf("expected amount cause to be preserved, got %v", err)
	}
}

func TestBuildOptIn(t *testing.T) {
	acct := newAddr()
	txn, err := BuildOptIn(acct, asset.USDC, testParams())
	if err != nil {
		t.Fatalf("build opt-in: %v", err)
	}
	if txn.Sender.String() != acct || txn.AssetReceiver.String() != acct || txn.AssetAmount != 0 {
		t.Fatalf("opt-in must be a zero self transfer: %+v", txn.AssetTransferTxnFields)
	}
	if _, err := BuildOptIn(acct, asset.Native, testParams()); !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("expected native opt-in to be refused, got %v", err)
	}
}

func buildMany(t *testing.T, n int) []types.Transaction {
	t.Helper()
	sender := newAddr()
	out := make([]types.Transaction, n)
	for i := range out {
		txn, err := Build(Intent{Sender: sender, Recipient: newAddr(), Amount: float64(i + 1), Asset: asset.Native}, testParams())
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		out[i] = txn
	}
	return out
}

func TestGroupSingleHasNoGroupID(t *testing.T) {
	txns := buildMany(t, 1)
	grouped, err := Group(txns)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if grouped[0].Group != (types.Digest{}) {
		t.Fatalf("single transaction must not be grouped")
	}
}

func TestGroupIsDeterministicAndOrdered(t *testing.T) {
	txns := buildMany(t, 3)

	first, err := Group(txns)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	second, err := Group(txns)
	if err != nil {
		t.Fatalf("regroup: %v", err)
	}
	gid := GroupID(first)
	if gid == (types.Digest{}) {
		t.Fatalf("expected a group id")
	}
	if gid != GroupID(second) {
		t.Fatalf("group id differs between runs")
	}
	for i := range first {
		if first[i].Group != gid {
			t.Fatalf("txn %d missing group stamp", i)
		}
		if first[i].Receiver != txns[i].Receiver {
			t.Fatalf("order changed at %d", i)
		}
	}
	if txns[0].Group != (types.Digest{}) {
		t.Fatalf("input slice must not be modified")
	}

	// Regrouping stamped transactions yields the same id.
	again, err := Group(first)
	if err != nil {
		t.Fatalf("group stamped: %v", err)
	}
	if GroupID(again) != gid {
		t.Fatalf("existing group ids must be cleared before hashing")
	}
}

func TestGroupLimits(t *testing.T) {
	if _, err := Group(nil); !errors.Is(err, ErrEmptyGroup) {
		t.Fatalf("expected ErrEmptyGroup, got %v", err)
	}
	if _, err := Group(buildMany(t, MaxGroupSize+1)); !errors.Is(err, ErrGroupTooLarge) {
		t.Fatalf("expected ErrGroupTooLarge, got %v", err)
	}
	if _, err := Group(buildMany(t, MaxGroupSize)); err != nil {
		t.Fatalf("max size group: %v", err)
	}
}
