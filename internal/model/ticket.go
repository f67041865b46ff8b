package model

import "time"

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type Category string

const (
	CategoryMechanical Category = "MEC"
	CategoryProcess    Category = "PRO"
	CategoryQuality    Category = "CAL"
	CategorySafety     Category = "SEG"
	CategoryLogistics  Category = "LOG"
	CategoryOperations Category = "OPS"
)

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusContained  TicketStatus = "CONTAINED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Ticket is a finished incident report. ID is a snowflake assigned by the
// store at commit time, never earlier.
type Ticket struct {
	ID              int64        `json:"id"`
	Code            string       `json:"code"`
	Name            string       `json:"name"`
	Category        Category     `json:"category"`
	Subcategory     string       `json:"subcategory,omitempty"`
	Severity        Severity     `json:"severity"`
	ReportedBy      string       `json:"reported_by"`
	ReportedAt      time.Time    `json:"reported_at"`
	Plant           string       `json:"plant"`
	Line            string       `json:"line"`
	WorkCell        string       `json:"work_cell"`
	Shift           string       `json:"shift"`
	Machine         *string      `json:"machine,omitempty"`
	ProductionOrder *string      `json:"production_order,omitempty"`
	LotNumber       *string      `json:"lot_number,omitempty"`
	Description     string       `json:"description"`
	ImmediateAction string       `json:"immediate_action,omitempty"`
	Status          TicketStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TicketSummary is the compact form shown in greetings.
type TicketSummary struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Severity   Severity  `json:"severity"`
	ReportedAt time.Time `json:"reported_at"`
}
