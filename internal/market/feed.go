package market

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Handler receives parsed feed events. The feed calls it synchronously per
// message; per-symbol ordering is the handler's concern.
type Handler interface {
	OnBar(bar Bar)
	OnOptionTick(tick OptionTick)
	OnChainSnapshot(indexSymbol string, entries []OptionChainEntry)
	OnAuctionState(symbol string, state AuctionState)
	OnBreadth(snap BreadthSnapshot)
	BeginSession(symbol string)
}

// feedMessage is the wire envelope from the data bridge. Type selects which
// payload field is populated.
type feedMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`

	Bar     *Bar               `json:"bar,omitempty"`
	Tick    *OptionTick        `json:"tick,omitempty"`
	Chain   []OptionChainEntry `json:"chain,omitempty"`
	Auction string             `json:"auction,omitempty"`
	Breadth *BreadthSnapshot   `json:"breadth,omitempty"`
}

// Feed is the websocket client for the market-data bridge. It reconnects
// with backoff until the context is cancelled.
type Feed struct {
	URL     string
	Handler Handler

	dialer *websocket.Dialer
}

func NewFeed(url string, handler Handler) *Feed {
	return &Feed{
		URL:     url,
		Handler: handler,
		dialer:  websocket.DefaultDialer,
	}
}

// Start runs the read loop until ctx is cancelled. It blocks; run it in its
// own goroutine.
func (f *Feed) Start(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.run(ctx); err != nil {
			log.Printf("feed: connection lost: %v (reconnecting in %s)", err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *Feed) run(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("feed: connected to %s", f.URL)

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return err
		}
		f.dispatch(msg)
	}
}

// dispatch parses one envelope and routes it. A malformed message is logged
// and skipped; it never stops the feed.
func (f *Feed) dispatch(raw []byte) {
	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("feed: bad message: %v", err)
		return
	}

	switch msg.Type {
	case "bar":
		if msg.Bar == nil {
			return
		}
		bar := *msg.Bar
		if bar.Symbol == "" {
			bar.Symbol = msg.Symbol
		}
		if bar.PCR == 0 {
			bar.PCR = 1.0
		}
		f.Handler.OnBar(bar)
	case "option_tick":
		if msg.Tick == nil {
			return
		}
		tick := *msg.Tick
		if tick.Symbol == "" {
			tick.Symbol = msg.Symbol
		}
		f.Handler.OnOptionTick(tick)
	case "chain":
		f.Handler.OnChainSnapshot(msg.Symbol, msg.Chain)
	case "auction":
		f.Handler.OnAuctionState(msg.Symbol, ParseAuctionState(msg.Auction))
	case "breadth":
		if msg.Breadth != nil {
			f.Handler.OnBreadth(*msg.Breadth)
		}
	case "session_start":
		f.Handler.BeginSession(msg.Symbol)
	default:
		log.Printf("feed: unknown message type %q", msg.Type)
	}
}
