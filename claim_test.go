package raise_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/raise"
)

func TestClaimChunkWalk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deposit(1000)
	f.grant("dave", 1000)

	// Nothing unlocks before the first release.
	pending, err := f.c.PendingClaim(ctx, "dave")
	if err != nil {
		t.Fatalf("PendingClaim: %v", err)
	}
	amountEq(t, pending, 0, "pending before first release")
	if _, err := f.c.Claim(ctx, "dave"); !errors.Is(err, raise.ErrNothingToClaim) {
		t.Fatalf("Claim = %v, want ErrNothingToClaim", err)
	}

	// Chunk 1: the 10% initial share.
	f.now = firstRelease
	released, err := f.c.Claim(ctx, "dave")
	if err != nil {
		t.Fatalf("Claim at chunk 1: %v", err)
	}
	amountEq(t, released, 100, "chunk 1 release")
	amountEq(t, f.balance(f.reserve, "dave"), 100, "dave balance")

	// Claiming again inside the same chunk is a rejected no-op.
	if _, err := f.c.Claim(ctx, "dave"); !errors.Is(err, raise.ErrNothingToClaim) {
		t.Fatalf("double claim = %v, want ErrNothingToClaim", err)
	}
	amountEq(t, f.balance(f.reserve, "dave"), 100, "balance after no-op")

	// Chunk 2 adds one 15% tranche.
	f.now = secondRelease
	released, err = f.c.Claim(ctx, "dave")
	if err != nil {
		t.Fatalf("Claim at chunk 2: %v", err)
	}
	amountEq(t, released, 150, "chunk 2 release")

	// Chunk 4: two skipped tranches arrive together.
	f.now = secondRelease.Add(2 * 30 * 24 * time.Hour)
	released, err = f.c.Claim(ctx, "dave")
	if err != nil {
		t.Fatalf("Claim at chunk 4: %v", err)
	}
	amountEq(t, released, 300, "chunk 4 release")

	// The schedule saturates at chunk 7 with everything released.
	f.now = secondRelease.Add(365 * 24 * time.Hour)
	released, err = f.c.Claim(ctx, "dave")
	if err != nil {
		t.Fatalf("final claim: %v", err)
	}
	amountEq(t, released, 450, "final release")
	amountEq(t, f.balance(f.reserve, "dave"), 1000, "fully vested balance")

	acc, err := f.c.Account("dave")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if !acc.Claimed.Equal(acc.Entitlement) {
		t.Fatalf("Claimed = %s, Entitlement = %s", acc.Claimed, acc.Entitlement)
	}

	res, err := f.c.Reserve()
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	amountEq(t, res.Released, 1000, "reserve released")
	amountEq(t, res.Owed(), 0, "reserve owed")

	// Saturated: nothing further ever unlocks.
	f.now = f.now.Add(365 * 24 * time.Hour)
	if _, err := f.c.Claim(ctx, "dave"); !errors.Is(err, raise.ErrNothingToClaim) {
		t.Fatalf("post-saturation claim = %v, want ErrNothingToClaim", err)
	}
}

func TestGrantCatchUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deposit(1000)
	f.grant("erin", 500)

	// Claim through chunk 2: 25% of the first grant.
	f.now = secondRelease
	released, err := f.c.Claim(ctx, "erin")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	amountEq(t, released, 125, "first grant claim")

	// A second grant after claiming catches up to the same chunk
	// immediately, so erin is not penalized for the grant arriving late.
	f.grant("erin", 500)
	amountEq(t, f.balance(f.reserve, "erin"), 250, "balance after catch-up")

	acc, err := f.c.Account("erin")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	amountEq(t, acc.Entitlement, 1000, "entitlement")
	amountEq(t, acc.Claimed, 250, "claimed incl catch-up")
	amountEq(t, acc.InitialShare, 100, "accumulated initial share")
	if acc.LastChunk != 2 {
		t.Fatalf("LastChunk = %d, want 2", acc.LastChunk)
	}

	// The catch-up leaves nothing extra claimable at the same chunk.
	pending, err := f.c.PendingClaim(ctx, "erin")
	if err != nil {
		t.Fatalf("PendingClaim: %v", err)
	}
	amountEq(t, pending, 0, "pending after catch-up")
	if _, err := f.c.Claim(ctx, "erin"); !errors.Is(err, raise.ErrNothingToClaim) {
		t.Fatalf("Claim = %v, want ErrNothingToClaim", err)
	}

	// The next chunk vests against the combined entitlement.
	f.now = secondRelease.Add(30 * 24 * time.Hour)
	released, err = f.c.Claim(ctx, "erin")
	if err != nil {
		t.Fatalf("Claim at chunk 3: %v", err)
	}
	amountEq(t, released, 150, "chunk 3 on combined entitlement")

	res, err := f.c.Reserve()
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	amountEq(t, res.Released, 400, "reserve released")
}

func TestClaimTransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deposit(500)
	f.grant("dave", 500)

	// Starve the medium's custody so the release cannot go out.
	if err := f.reserve.Drain(raise.NewAmount(480)); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	f.now = firstRelease
	_, err := f.c.Claim(ctx, "dave")
	if !errors.Is(err, raise.ErrTransferFailed) {
		t.Fatalf("Claim = %v, want ErrTransferFailed", err)
	}

	acc, err := f.c.Account("dave")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	amountEq(t, acc.Claimed, 0, "claimed after rollback")
	if acc.LastChunk != 0 {
		t.Fatalf("LastChunk = %d, want 0", acc.LastChunk)
	}
	res, err := f.c.Reserve()
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	amountEq(t, res.Released, 0, "released after rollback")

	// Refill custody; the claim is still there to settle.
	f.reserve.Mint("topup", raise.NewAmount(480))
	if err := f.reserve.TransferIn(ctx, "topup", raise.NewAmount(480)); err != nil {
		t.Fatalf("TransferIn: %v", err)
	}
	released, err := f.c.Claim(ctx, "dave")
	if err != nil {
		t.Fatalf("Claim after refill: %v", err)
	}
	amountEq(t, released, 50, "release after refill")
}

func TestCatchUpTransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deposit(1000)
	f.grant("erin", 500)

	f.now = firstRelease
	if _, err := f.c.Claim(ctx, "erin"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	// Custody holds 950; leave too little for the 50-unit catch-up.
	if err := f.reserve.Drain(raise.NewAmount(940)); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	_, err := f.c.GrantViaDistributor(ctx, operator, "erin", raise.NewAmount(500), "wire-9")
	if !errors.Is(err, raise.ErrTransferFailed) {
		t.Fatalf("GrantViaDistributor = %v, want ErrTransferFailed", err)
	}

	acc, err := f.c.Account("erin")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	amountEq(t, acc.Entitlement, 500, "entitlement after rollback")
	amountEq(t, acc.Claimed, 50, "claimed after rollback")

	agg, err := f.c.Aggregate()
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	amountEq(t, agg.Issued, 500, "issued after rollback")

	res, err := f.c.Reserve()
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	amountEq(t, res.Locked, 500, "locked after rollback")
	amountEq(t, res.Released, 50, "released after rollback")
}

func TestClaimBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		f := newFixture(t, nil)
		if _, err := f.c.ClaimBatch(ctx, nil); !errors.Is(err, raise.ErrEmptyClaimBatch) {
			t.Fatalf("ClaimBatch = %v, want ErrEmptyClaimBatch", err)
		}
	})

	t.Run("releases every member", func(t *testing.T) {
		f := newFixture(t, nil)
		f.deposit(1000)
		f.grant("a", 400)
		f.grant("b", 400)
		f.now = firstRelease

		paid, err := f.c.ClaimBatch(ctx, []string{"a", "b"})
		if err != nil {
			t.Fatalf("ClaimBatch: %v", err)
		}
		amountEq(t, paid["a"], 40, "a release")
		amountEq(t, paid["b"], 40, "b release")
		amountEq(t, f.balance(f.reserve, "a"), 40, "a balance")
		amountEq(t, f.balance(f.reserve, "b"), 40, "b balance")
	})

	t.Run("one invalid member rejects the whole batch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.deposit(1000)
		f.grant("a", 400)
		f.now = firstRelease

		if _, err := f.c.ClaimBatch(ctx, []string{"a", "nobody"}); !errors.Is(err, raise.ErrNoAccount) {
			t.Fatalf("ClaimBatch = %v, want ErrNoAccount", err)
		}
		amountEq(t, f.balance(f.reserve, "a"), 0, "nothing released")

		// a's claim is untouched and settles on its own.
		released, err := f.c.Claim(ctx, "a")
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		amountEq(t, released, 40, "a claims alone")
	})

	t.Run("duplicate member rejects the batch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.deposit(1000)
		f.grant("a", 400)
		f.now = firstRelease

		if _, err := f.c.ClaimBatch(ctx, []string{"a", "a"}); !errors.Is(err, raise.ErrNothingToClaim) {
			t.Fatalf("ClaimBatch = %v, want ErrNothingToClaim", err)
		}
		amountEq(t, f.balance(f.reserve, "a"), 0, "nothing released")
	})

	t.Run("mid-batch transfer failure keeps paid members settled", func(t *testing.T) {
		f := newFixture(t, nil)
		f.deposit(1000)
		f.grant("a", 400)
		f.grant("b", 400)
		f.now = firstRelease

		// Custody covers only the first 40-unit release.
		if err := f.reserve.Drain(raise.NewAmount(950)); err != nil {
			t.Fatalf("Drain: %v", err)
		}

		paid, err := f.c.ClaimBatch(ctx, []string{"a", "b"})
		if !errors.Is(err, raise.ErrTransferFailed) {
			t.Fatalf("ClaimBatch = %v, want ErrTransferFailed", err)
		}
		amountEq(t, paid["a"], 40, "a paid before the failure")
		amountEq(t, f.balance(f.reserve, "a"), 40, "a balance")
		amountEq(t, f.balance(f.reserve, "b"), 0, "b balance")

		accA, err := f.c.Account("a")
		if err != nil {
			t.Fatalf("Account(a): %v", err)
		}
		amountEq(t, accA.Claimed, 40, "a stays settled")

		accB, err := f.c.Account("b")
		if err != nil {
			t.Fatalf("Account(b): %v", err)
		}
		amountEq(t, accB.Claimed, 0, "b rolled back")

		res, err := f.c.Reserve()
		if err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		amountEq(t, res.Released, 40, "reserve covers only the paid member")

		// b's claim survives for later.
		f.reserve.Mint("topup", raise.NewAmount(100))
		if err := f.reserve.TransferIn(ctx, "topup", raise.NewAmount(100)); err != nil {
			t.Fatalf("TransferIn: %v", err)
		}
		released, err := f.c.Claim(ctx, "b")
		if err != nil {
			t.Fatalf("Claim(b): %v", err)
		}
		amountEq(t, released, 40, "b claims later")
	})
}
