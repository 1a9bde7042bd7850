package mock

import (
	"sync"
	"time"

	"ibkr_gateway/internal/core"

	"github.com/shopspring/decimal"
)

// DemoAccount is the account id reported by the scripted gateway
const DemoAccount = "DU0000001"

// NewScriptedGateway returns a fake that answers every request the way a
// paper-trading gateway would, with fixed demo data.
func NewScriptedGateway() *FakeGateway {
	f := NewFakeGateway()

	var mu sync.Mutex
	nextID := int64(1)
	issue := func() int64 {
		mu.Lock()
		defer mu.Unlock()
		id := nextID
		nextID++
		return id
	}

	prices := map[string]decimal.Decimal{
		"SPY":  decimal.RequireFromString("512.34"),
		"QQQ":  decimal.RequireFromString("438.10"),
		"AAPL": decimal.RequireFromString("189.95"),
	}

	// The gateway announces the next valid id right after the handshake
	f.OnCommand(core.OpConnect, func(core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: issue()}}
	})

	f.OnCommand(core.OpReqIDs, func(core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: issue()}}
	})

	f.OnCommand(core.OpReqCurrentTime, func(core.Command) []core.Event {
		return []core.Event{core.CurrentTimeEvent{Epoch: time.Now().Unix()}}
	})

	f.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		price, ok := prices[call.Contract.Symbol]
		if !ok {
			price = decimal.NewFromInt(100)
		}
		return []core.Event{
			core.ErrorEvent{RequestID: call.RequestID, Code: 10167, Message: "Requested market data is not subscribed. Displaying delayed market data."},
			core.TickPriceEvent{RequestID: call.RequestID, Field: core.TickBid, Price: price.Sub(decimal.RequireFromString("0.01"))},
			core.TickPriceEvent{RequestID: call.RequestID, Field: core.TickAsk, Price: price.Add(decimal.RequireFromString("0.01"))},
			core.TickPriceEvent{RequestID: call.RequestID, Field: core.TickLast, Price: price},
		}
	})

	f.OnCommand(core.OpReqAccountSummary, func(call core.Command) []core.Event {
		id := call.RequestID
		return []core.Event{
			core.AccountSummaryEvent{RequestID: id, Account: DemoAccount, Tag: "NetLiquidation", Value: "1000000.00", Currency: core.CurrencyUSD},
			core.AccountSummaryEvent{RequestID: id, Account: DemoAccount, Tag: "TotalCashValue", Value: "875000.00", Currency: core.CurrencyUSD},
			core.AccountSummaryEvent{RequestID: id, Account: DemoAccount, Tag: "UnrealizedPnL", Value: "1250.50", Currency: core.CurrencyUSD},
			core.AccountSummaryEvent{RequestID: id, Account: DemoAccount, Tag: "RealizedPnL", Value: "0.00", Currency: core.CurrencyUSD},
			core.AccountSummaryEndEvent{RequestID: id},
		}
	})

	f.OnCommand(core.OpReqPositions, func(core.Command) []core.Event {
		return []core.Event{
			core.PositionEvent{Account: DemoAccount, Contract: core.StockContract("SPY"), Quantity: decimal.NewFromInt(100), AvgCost: decimal.RequireFromString("498.20")},
			core.PositionEvent{Account: DemoAccount, Contract: core.StockContract("AAPL"), Quantity: decimal.NewFromInt(-50), AvgCost: decimal.RequireFromString("191.05")},
			core.PositionEndEvent{},
		}
	})

	f.OnCommand(core.OpReqExecutions, func(call core.Command) []core.Event {
		id := call.RequestID
		return []core.Event{
			core.ExecDetailsEvent{
				RequestID: id,
				Contract:  core.StockContract("SPY"),
				Execution: core.Execution{
					ExecID:   "0000e0d5.65f1a2b3.01.01",
					OrderID:  1,
					ClientID: 1,
					PermID:   1843412387,
					Time:     time.Now().UTC().Format("20060102 15:04:05"),
					Account:  DemoAccount,
					Exchange: "ARCA",
					Side:     "BOT",
					Shares:   decimal.NewFromInt(100),
					Price:    decimal.RequireFromString("498.20"),
					CumQty:   decimal.NewFromInt(100),
					AvgPrice: decimal.RequireFromString("498.20"),
				},
			},
			core.ExecDetailsEndEvent{RequestID: id},
		}
	})

	return f
}
