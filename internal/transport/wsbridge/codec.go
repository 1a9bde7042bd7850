package wsbridge

import (
	"encoding/json"
	"fmt"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/shopspring/decimal"
)

// wireEvent is the JSON envelope of one gateway event. Fields that do not
// apply to the event are omitted.
type wireEvent struct {
	Event string `json:"event"`

	RequestID *int64 `json:"reqId,omitempty"`

	// error
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// tickPrice
	Field int              `json:"field,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`

	// accountSummary, position
	Account  string `json:"account,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Value    string `json:"value,omitempty"`
	Currency string `json:"currency,omitempty"`

	Contract  *core.Contract   `json:"contract,omitempty"`
	Position  *decimal.Decimal `json:"pos,omitempty"`
	AvgCost   *decimal.Decimal `json:"avgCost,omitempty"`
	Execution *core.Execution  `json:"execution,omitempty"`

	// nextValidId, currentTime
	OrderID int64 `json:"orderId,omitempty"`
	Time    int64 `json:"time,omitempty"`
}

func (w wireEvent) reqID() int64 {
	if w.RequestID == nil {
		return core.NoRequestID
	}
	return *w.RequestID
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// DecodeEvent parses one event envelope
func DecodeEvent(data []byte) (core.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	switch core.EventName(w.Event) {
	case core.EventConnected:
		return core.ConnectedEvent{}, nil
	case core.EventDisconnected:
		return core.DisconnectedEvent{}, nil
	case core.EventError:
		return core.ErrorEvent{RequestID: w.reqID(), Code: w.Code, Message: w.Message}, nil
	case core.EventTickPrice:
		return core.TickPriceEvent{RequestID: w.reqID(), Field: w.Field, Price: decimalOrZero(w.Price)}, nil
	case core.EventAccountSummary:
		return core.AccountSummaryEvent{
			RequestID: w.reqID(),
			Account:   w.Account,
			Tag:       w.Tag,
			Value:     w.Value,
			Currency:  w.Currency,
		}, nil
	case core.EventAccountSummaryEnd:
		return core.AccountSummaryEndEvent{RequestID: w.reqID()}, nil
	case core.EventPosition:
		ev := core.PositionEvent{
			Account:  w.Account,
			Quantity: decimalOrZero(w.Position),
			AvgCost:  decimalOrZero(w.AvgCost),
		}
		if w.Contract != nil {
			ev.Contract = *w.Contract
		}
		return ev, nil
	case core.EventPositionEnd:
		return core.PositionEndEvent{}, nil
	case core.EventExecDetails:
		ev := core.ExecDetailsEvent{RequestID: w.reqID()}
		if w.Contract != nil {
			ev.Contract = *w.Contract
		}
		if w.Execution != nil {
			ev.Execution = *w.Execution
		}
		return ev, nil
	case core.EventExecDetailsEnd:
		return core.ExecDetailsEndEvent{RequestID: w.reqID()}, nil
	case core.EventNextValidID:
		return core.NextValidIDEvent{OrderID: w.OrderID}, nil
	case core.EventCurrentTime:
		return core.CurrentTimeEvent{Epoch: w.Time}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEvent, w.Event)
	}
}

// EncodeEvent renders an event as its envelope
func EncodeEvent(event core.Event) ([]byte, error) {
	w := wireEvent{Event: string(event.Name())}
	id := func(v int64) *int64 { return &v }
	dec := func(d decimal.Decimal) *decimal.Decimal { return &d }

	switch e := event.(type) {
	case core.ConnectedEvent, core.DisconnectedEvent, core.PositionEndEvent:
	case core.ErrorEvent:
		w.RequestID = id(e.RequestID)
		w.Code = e.Code
		w.Message = e.Message
	case core.TickPriceEvent:
		w.RequestID = id(e.RequestID)
		w.Field = e.Field
		w.Price = dec(e.Price)
	case core.AccountSummaryEvent:
		w.RequestID = id(e.RequestID)
		w.Account = e.Account
		w.Tag = e.Tag
		w.Value = e.Value
		w.Currency = e.Currency
	case core.AccountSummaryEndEvent:
		w.RequestID = id(e.RequestID)
	case core.PositionEvent:
		w.Account = e.Account
		w.Contract = &e.Contract
		w.Position = dec(e.Quantity)
		w.AvgCost = dec(e.AvgCost)
	case core.ExecDetailsEvent:
		w.RequestID = id(e.RequestID)
		w.Contract = &e.Contract
		w.Execution = &e.Execution
	case core.ExecDetailsEndEvent:
		w.RequestID = id(e.RequestID)
	case core.NextValidIDEvent:
		w.OrderID = e.OrderID
	case core.CurrentTimeEvent:
		w.Time = e.Epoch
	default:
		return nil, fmt.Errorf("%w: %T", apperrors.ErrUnknownEvent, event)
	}

	return json.Marshal(w)
}
