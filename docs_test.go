package raise_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/raise"
	"github.com/xraph/raise/access"
	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/store/memory"
	tokenmem "github.com/xraph/raise/token/memory"
	"github.com/xraph/raise/vesting"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		saleStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		now := saleStart.Add(time.Hour)

		reserve := tokenmem.New(18)
		native := tokenmem.New(18)

		c := raise.New(memory.New(),
			raise.WithLogger(slog.Default()),
			raise.WithReserveToken("SALE", reserve),
			raise.WithNativeToken(native),
			raise.WithClock(access.ClockFunc(func() time.Time { return now })),
		)

		if err := c.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer c.Stop()

		schedule, err := vesting.NewSchedule(
			saleStart.AddDate(0, 3, 0),
			saleStart.AddDate(0, 4, 0),
			30*24*time.Hour,
			1000, 1500, 10000,
		)
		if err != nil {
			t.Fatal(err)
		}

		err = c.Initialize(ctx, "operator", &campaign.Config{
			Goal:            raise.MustAmount("1000000"),
			ReceiveDecimals: 18,
			SaleStart:       saleStart,
			SaleEnd:         saleStart.AddDate(0, 1, 0),
			Channels: map[string]*campaign.Channel{
				"native": {
					Kind:      campaign.KindNative,
					Name:      "native",
					Rate:      raise.NewAmount(500),
					RateScale: 100,
				},
			},
			Vesting: schedule,
		})
		if err != nil {
			t.Fatal(err)
		}

		reserve.Mint("operator", raise.MustAmount("1000000"))
		if err := c.Deposit(ctx, "operator", raise.MustAmount("1000000")); err != nil {
			t.Fatal(err)
		}

		native.Mint("alice", raise.NewAmount(100))
		entry, err := c.ContributeNative(ctx, "alice", raise.NewAmount(100))
		if err != nil {
			t.Fatal(err)
		}
		if entry.Entitlement.IsZero() {
			t.Fatal("expected non-zero entitlement")
		}

		// Nothing vests before the first release.
		if pending, err := c.PendingClaim(ctx, "alice"); err != nil {
			t.Fatal(err)
		} else if !pending.IsZero() {
			t.Fatalf("pending = %s before first release, want 0", pending)
		}
	})
}
