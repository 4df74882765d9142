package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered creator. Balance is a derived aggregate of
// qualifying submission amounts and can be recomputed from history.
type User struct {
	ID         int64
	ExternalID string
	FullName   string
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Submission is append-only; once recorded it is never edited and its
// link can never be claimed again by any user.
type Submission struct {
	ID        string
	UserID    string
	Platform  string
	Link      string
	Views     int64
	Qualified bool
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type EventKind string

const (
	EventText    EventKind = "text"
	EventSelect  EventKind = "select"
	EventCommand EventKind = "command"
)

// Event is one inbound chat interaction, already tagged with the stable
// user identifier by the transport adapter.
type Event struct {
	UserID string
	Kind   EventKind
	Data   string
}

type MenuOption struct {
	Label string
	Data  string
}

// Message is one outbound reply; Menu, when present, renders as an
// inline keyboard on transports that support it.
type Message struct {
	Text string
	Menu []MenuOption
}
