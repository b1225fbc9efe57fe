package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tolelom/scorechain/internal/obslog"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit EventType = "block_commit"
	EventTxExecuted  EventType = "tx_executed"

	EventGameRegistered EventType = "game_registered"
	EventGameRevoked    EventType = "game_revoked"
	EventGameUpdated    EventType = "game_updated"

	EventIdentityMinted EventType = "identity_minted"
	EventResultApplied  EventType = "result_applied"

	EventRewardMinted   EventType = "reward_minted"
	EventTokenTransfer  EventType = "token_transfer"
	EventTokenBurned    EventType = "token_burned"
	EventTokensStaked   EventType = "tokens_staked"
	EventTokensUnstaked EventType = "tokens_unstaked"
	EventParamsUpdated  EventType = "params_updated"

	EventLotteryDraw EventType = "lottery_draw_executed"

	EventNativeDeposited EventType = "native_deposited"
	EventFaucetSwap      EventType = "faucet_swap"

	EventRoleTransferred EventType = "role_transferred"
	EventPauseChanged    EventType = "pause_changed"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Timestamp   int64          `json:"timestamp"` // unix nanoseconds of the containing block
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
	log      *zap.Logger
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[EventType][]Handler),
		log:      obslog.L().Named("events"),
	}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type. It is the hook used by
// outbound sinks (Redis stream, websocket feed).
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously, then to
// the catch-all subscribers. Each handler is guarded by panic recovery so a
// misbehaving subscriber cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixNano()
	}
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.all))
	handlers = append(handlers, e.handlers[ev.Type]...)
	handlers = append(handlers, e.all...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("handler panicked",
						zap.String("type", string(ev.Type)),
						zap.String("tx_id", ev.TxID),
						zap.Any("panic", r),
					)
				}
			}()
			h(ev)
		}()
	}
}
