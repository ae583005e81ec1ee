package events

// Event enumerates high-level topics inside the scalp core.
type Event string

const (
	EventBar            Event = "bar"
	EventChainSnapshot  Event = "chain_snapshot"
	EventOptionTick     Event = "option_tick"
	EventAuctionState   Event = "auction_state"
	EventBreadth        Event = "breadth"
	EventSignalEmitted  Event = "signal.emitted"
	EventSignalDropped  Event = "signal.dropped"
	EventPositionOpened Event = "position.opened"
	EventPositionClosed Event = "position.closed"
	EventPartialExit    Event = "position.partial_exit"
)
