// Package raise provides a capped-contribution fundraising ledger with
// time-chunked token vesting for Go applications.
//
// Raise is designed as a library, not a service. Import it directly into
// your Go application and run one Campaign per token sale. It provides:
//
//   - Multi-channel admission: native currency, external payment tokens,
//     and a privileged off-chain distributor channel
//   - Exact cap accounting with deterministic partial fill and
//     synchronous overflow refunds
//   - A shared chunked vesting schedule with catch-up accounting for
//     beneficiaries granted entitlement at different times
//   - A custody reserve that entitlement is locked against, so issued
//     claims are always fully backed
//   - Pluggable persistence (memory, SQLite, PostgreSQL, MongoDB)
//   - Lifecycle plugins for audit trails and metrics
//
// # Quick Start
//
// Create a campaign with your preferred store:
//
//	import (
//	    "github.com/xraph/raise"
//	    "github.com/xraph/raise/store/memory"
//	    tokenmem "github.com/xraph/raise/token/memory"
//	)
//
//	reserve := tokenmem.New(18)
//	c := raise.New(memory.New(),
//	    raise.WithReserveToken("SALE", reserve),
//	    raise.WithNativeToken(tokenmem.New(18)),
//	)
//
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Stop()
//
// Initialize it once with the goal, channels, and vesting timetable:
//
//	err := c.Initialize(ctx, operator, &campaign.Config{
//	    Goal:            raise.MustAmount("1000000"),
//	    ReceiveDecimals: 18,
//	    SaleStart:       start,
//	    SaleEnd:         end,
//	    Channels: map[string]*campaign.Channel{
//	        "native": {Kind: campaign.KindNative, Name: "native",
//	            Rate: raise.NewAmount(500), RateScale: 100},
//	    },
//	    Vesting: schedule,
//	})
//
// Then deposit reserve, take contributions, and settle claims as the
// schedule unlocks:
//
//	c.Deposit(ctx, operator, raise.MustAmount("1000000"))
//	entry, err := c.ContributeNative(ctx, user, paid)
//	pending, err := c.PendingClaim(ctx, user)
//	released, err := c.Claim(ctx, user)
//
// # Consistency model
//
// Every mutating operation is serialized and atomic: checks run first,
// payment is pulled in before bookkeeping, all changed records persist in
// one store write, and outbound transfers happen last. A failure at any
// step leaves ledger state exactly as it was before the call. A
// reentrancy guard rejects operations invoked from inside plugin hooks
// or payment media with ErrReentrantCall.
package raise
