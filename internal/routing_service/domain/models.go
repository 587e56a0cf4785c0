package domain

import (
	"time"
)

// PrefixEntry is one row of the dial plan. Three shapes share the table,
// mirroring the source data set:
//   - country row:  OperatorName == nil, MNC == nil, Prefix == nil
//   - operator row: OperatorName != nil, MNC != nil, Prefix == nil
//   - prefix row:   OperatorName != nil, MNC != nil, Prefix != nil
//
// Every prefix row must reference a previously declared operator row with
// the same (Country, OperatorName, MNC).
type PrefixEntry struct {
	ID           int64     `json:"-"`
	Country      string    `json:"country"`
	CountryCode  int       `json:"cc"`
	MCC          int       `json:"mcc"`
	OperatorName *string   `json:"operator,omitempty"`
	MNC          *MNC      `json:"mnc,omitempty"`
	Prefix       *string   `json:"prefix,omitempty"`
	CreatedAt    time.Time `json:"-"`
}

// CountryEntry is the distinct-country view of the dial plan.
type CountryEntry struct {
	Country     string `json:"country"`
	CountryCode int    `json:"cc"`
	MCC         int    `json:"mcc"`
}

// OperatorGroup is one distinct (operator, MNC) combination under a country.
type OperatorGroup struct {
	Country      string `json:"country"`
	CountryCode  int    `json:"cc"`
	MCC          int    `json:"mcc"`
	OperatorName string `json:"operator"`
	MNC          MNC    `json:"mnc"`
}

// RateRecord is a cost/sell rate for one operator tier on one connector.
// (MCC, MNC, ConnectorID) is unique: exactly one rate per operator, or per
// country wildcard, per connector. The wildcard is a fallback tier, never an
// override.
type RateRecord struct {
	MCC         int       `json:"mcc"`
	MNC         MNC       `json:"mnc"`
	ConnectorID string    `json:"connectorId"`
	Rate        float64   `json:"rate"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ConnectorStatus is the local view of a connector's lifecycle state.
type ConnectorStatus string

const (
	ConnectorEnabled  ConnectorStatus = "enabled"
	ConnectorDisabled ConnectorStatus = "disabled"
)

// Connector is a bound channel (SMPP or HTTP) to the upstream carrier. The
// gateway is source of truth for live state; this record is a cache/index.
type Connector struct {
	Name      string          `json:"name"`
	Status    ConnectorStatus `json:"status"`
	Host      string          `json:"host,omitempty"`
	Port      int             `json:"port,omitempty"`
	SystemID  string          `json:"systemId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RoutingOperator is one operator entry inside a routing configuration.
type RoutingOperator struct {
	OperatorName string   `json:"operator"`
	MNC          MNC      `json:"mnc"`
	MCC          int      `json:"mcc"`
	ObservedRate *float64 `json:"rate"`
	AssignedRate float64  `json:"assignedRate"`
}

// RoutingConfiguration is the persisted outcome of a provisioning run,
// keyed by (Username, Country). Re-provisioning merges operator entries by
// (OperatorName, MNC) instead of duplicating them.
type RoutingConfiguration struct {
	Username            string            `json:"username"`
	ConnectorID         string            `json:"connectorId"`
	Country             string            `json:"country"`
	CountryCode         int               `json:"countryCode"`
	GroupName           string            `json:"groupName"`
	DefaultAssignedRate float64           `json:"assignedRate"`
	Operators           []RoutingOperator `json:"operators"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// DLRPayload is the gateway-assigned body of a delivery receipt.
type DLRPayload struct {
	ID            string `json:"id"`
	Level         string `json:"level"`
	MessageStatus string `json:"message_status"`
	Subdate       string `json:"subdate,omitempty"`
	DoneDate      string `json:"donedate,omitempty"`
}

// DLRRecord is one raw delivery-receipt telemetry record. The gateway
// delivers at least once, so multiple raw copies may share the same Data.ID.
type DLRRecord struct {
	Data       DLRPayload `json:"data"`
	ReceivedAt time.Time  `json:"receivedAt,omitempty"`
}

// PageSizeAll disables pagination on list operations.
const PageSizeAll = -1

// PageRequest carries pagination for list operations. Page is zero-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// All reports whether pagination is disabled.
func (p PageRequest) All() bool {
	return p.PageSize == PageSizeAll
}

// Offset returns the row offset for a paginated query.
func (p PageRequest) Offset() int {
	if p.All() || p.Page < 0 {
		return 0
	}
	return p.Page * p.PageSize
}
