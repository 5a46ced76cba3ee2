package boiler

// MessageKind identifies the kind of a Message, mirroring the tagged
// message kinds of the plant/controller wire protocol (spec §6).
type MessageKind int

const (
	// Inbound kinds.
	KindSteamBoilerWaiting MessageKind = iota
	KindPhysicalUnitsReady
	KindLevel
	KindSteam
	KindPumpState
	KindPumpControlState
	KindLevelRepaired
	KindSteamRepaired
	KindPumpRepaired
	KindPumpControlRepaired
	KindLevelFailureAck
	KindSteamFailureAck
	KindPumpFailureAck
	KindPumpControlFailureAck

	// Outbound kinds.
	KindMode
	KindProgramReady
	KindOpenPump
	KindClosePump
	KindValve
	KindLevelFailureDetection
	KindSteamFailureDetection
	KindPumpFailureDetection
	KindPumpControlFailureDetection
	KindLevelRepairedAck
	KindSteamRepairedAck
	KindPumpRepairedAck
	KindPumpControlRepairedAck
)

// indexed reports whether a kind carries a pump/controller index.
func (k MessageKind) indexed() bool {
	switch k {
	case KindPumpState, KindPumpControlState, KindPumpRepaired, KindPumpControlRepaired,
		KindPumpFailureAck, KindPumpControlFailureAck, KindOpenPump, KindClosePump,
		KindPumpFailureDetection, KindPumpControlFailureDetection,
		KindPumpRepairedAck, KindPumpControlRepairedAck:
		return true
	}
	return false
}

// Message is a single tagged message exchanged between the controller and
// the plant. Only the fields relevant to Kind are meaningful.
type Message struct {
	Kind   MessageKind
	Pump   int     // pump/controller index, for indexed kinds; -1 otherwise
	Bool   bool    // boolean payload (pump/controller state)
	Double float64 // double payload (level/steam reading)
	Mode   Mode    // mode payload, for KindMode
}

// Indexed constructs an indexed message (pump/controller state, open/close
// pump, failure detection/ack/repair for pump n).
func Indexed(kind MessageKind, pump int) Message {
	return Message{Kind: kind, Pump: pump}
}

// IndexedBool constructs an indexed boolean message (reported pump or
// controller state).
func IndexedBool(kind MessageKind, pump int, value bool) Message {
	return Message{Kind: kind, Pump: pump, Bool: value}
}

// DoubleMessage constructs a double-valued message (LEVEL_v / STEAM_v).
func DoubleMessage(kind MessageKind, value float64) Message {
	return Message{Kind: kind, Pump: -1, Double: value}
}

// Plain constructs a message with no payload (STEAM_BOILER_WAITING, ...).
func Plain(kind MessageKind) Message {
	return Message{Kind: kind, Pump: -1}
}

// ModeMessage constructs the MODE_m message.
func ModeMessage(m Mode) Message {
	return Message{Kind: KindMode, Pump: -1, Mode: m}
}

// Mailbox is an ordered multiset of tagged messages. The controller treats
// the inbound mailbox as read-only during a tick and the outbound mailbox
// as write-only; it never retains either across ticks.
type Mailbox struct {
	messages []Message
}

// NewMailbox returns an empty mailbox, optionally seeded with messages.
func NewMailbox(messages ...Message) *Mailbox {
	return &Mailbox{messages: messages}
}

// Send appends a message to the mailbox.
func (m *Mailbox) Send(msg Message) {
	m.messages = append(m.messages, msg)
}

// All returns every message currently in the mailbox, in send/arrival order.
func (m *Mailbox) All() []Message {
	return m.messages
}

// ExtractUnique returns the single message of the given kind in the
// mailbox. It returns ok=false if there are zero or more than one
// match — mirroring the protocol rule of at most one message per
// sensor/value kind per tick.
func ExtractUnique(mb *Mailbox, kind MessageKind) (Message, bool) {
	var match Message
	found := false
	for _, msg := range mb.messages {
		if msg.Kind != kind {
			continue
		}
		if found {
			return Message{}, false
		}
		match = msg
		found = true
	}
	return match, found
}

// ExtractAllOfKind returns every message of the given kind, in arrival
// order. The result is empty (never nil) if there are no matches.
func ExtractAllOfKind(mb *Mailbox, kind MessageKind) []Message {
	matches := make([]Message, 0)
	for _, msg := range mb.messages {
		if msg.Kind == kind {
			matches = append(matches, msg)
		}
	}
	return matches
}

// ExtractIndexed collects every message of the given kind into a slice
// indexed by pump number 0..count-1. It returns ok=false unless there is
// exactly one message per index in [0, count) — the "one per
// pump/controller per tick" multiplicity rule.
func ExtractIndexed(mb *Mailbox, kind MessageKind, count int) ([]Message, bool) {
	slots := make([]Message, count)
	seen := make([]bool, count)
	for _, msg := range mb.messages {
		if msg.Kind != kind {
			continue
		}
		if msg.Pump < 0 || msg.Pump >= count || seen[msg.Pump] {
			return nil, false
		}
		slots[msg.Pump] = msg
		seen[msg.Pump] = true
	}
	for _, ok := range seen {
		if !ok {
			return nil, false
		}
	}
	return slots, true
}
