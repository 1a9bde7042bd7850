package core

// Operation names, shared by the bridge wire format and the fake gateway's call log
const (
	OpConnect              = "connect"
	OpDisconnect           = "disconnect"
	OpReqMarketDataType    = "reqMarketDataType"
	OpReqMktData           = "reqMktData"
	OpCancelMktData        = "cancelMktData"
	OpReqAccountSummary    = "reqAccountSummary"
	OpCancelAccountSummary = "cancelAccountSummary"
	OpReqPositions         = "reqPositions"
	OpCancelPositions      = "cancelPositions"
	OpReqExecutions        = "reqExecutions"
	OpReqIDs               = "reqIds"
	OpReqCurrentTime       = "reqCurrentTime"
	OpPlaceOrder           = "placeOrder"
)

// Command is one outbound operation with its arguments. Fields that do not
// apply to Op are left zero.
type Command struct {
	Op string `json:"op"`

	// connect
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	ClientID int64  `json:"clientId,omitempty"`
	Session  string `json:"session,omitempty"`

	RequestID int64 `json:"reqId,omitempty"`

	// market data
	MarketDataType     int       `json:"marketDataType,omitempty"`
	Contract           *Contract `json:"contract,omitempty"`
	GenericTickList    string    `json:"genericTickList,omitempty"`
	Snapshot           bool      `json:"snapshot,omitempty"`
	RegulatorySnapshot bool      `json:"regulatorySnapshot,omitempty"`

	// account
	Group  string           `json:"group,omitempty"`
	Tags   string           `json:"tags,omitempty"`
	Filter *ExecutionFilter `json:"filter,omitempty"`

	// orders
	NumIDs  int    `json:"numIds,omitempty"`
	OrderID int64  `json:"orderId,omitempty"`
	Order   *Order `json:"order,omitempty"`
}
