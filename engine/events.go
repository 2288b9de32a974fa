package engine

import (
	"github.com/settlenet-io/settle-go/agreement"
)

// Events fans settlement/transfer life-cycle events out to observers
// (relayer, audit log, reporter). Sends are non-blocking: a slow consumer
// drops events, it never wedges a fund-moving operation. Events are for
// observability only, never for control flow.
type Events struct {
	settlementCreatedCh   chan *agreement.SettlementCreatedEvent
	settlementCompletedCh chan *agreement.SettlementCompletedEvent
	settlementRefundedCh  chan *agreement.SettlementRefundedEvent
	transferInitiatedCh   chan *agreement.TransferInitiatedEvent
	transferCompletedCh   chan *agreement.TransferCompletedEvent
	transferRefundedCh    chan *agreement.TransferRefundedEvent
}

func NewEvents(chSize int) *Events {
	if chSize <= 0 {
		chSize = defaultChannelSize
	}
	return &Events{
		settlementCreatedCh:   make(chan *agreement.SettlementCreatedEvent, chSize),
		settlementCompletedCh: make(chan *agreement.SettlementCompletedEvent, chSize),
		settlementRefundedCh:  make(chan *agreement.SettlementRefundedEvent, chSize),
		transferInitiatedCh:   make(chan *agreement.TransferInitiatedEvent, chSize),
		transferCompletedCh:   make(chan *agreement.TransferCompletedEvent, chSize),
		transferRefundedCh:    make(chan *agreement.TransferRefundedEvent, chSize),
	}
}

func (e *Events) GetSettlementCreatedEventChannel() <-chan *agreement.SettlementCreatedEvent {
	return e.settlementCreatedCh
}

func (e *Events) GetSettlementCompletedEventChannel() <-chan *agreement.SettlementCompletedEvent {
	return e.settlementCompletedCh
}

func (e *Events) GetSettlementRefundedEventChannel() <-chan *agreement.SettlementRefundedEvent {
	return e.settlementRefundedCh
}

func (e *Events) GetTransferInitiatedEventChannel() <-chan *agreement.TransferInitiatedEvent {
	return e.transferInitiatedCh
}

func (e *Events) GetTransferCompletedEventChannel() <-chan *agreement.TransferCompletedEvent {
	return e.transferCompletedCh
}

func (e *Events) GetTransferRefundedEventChannel() <-chan *agreement.TransferRefundedEvent {
	return e.transferRefundedCh
}

// publish helpers are nil-safe so engines can run without an event bus.

func (e *Events) publishSettlementCreated(ev *agreement.SettlementCreatedEvent) {
	if e == nil {
		return
	}
	select {
	case e.settlementCreatedCh <- ev:
	default:
	}
}

func (e *Events) publishSettlementCompleted(ev *agreement.SettlementCompletedEvent) {
	if e == nil {
		return
	}
	select {
	case e.settlementCompletedCh <- ev:
	default:
	}
}

func (e *Events) publishSettlementRefunded(ev *agreement.SettlementRefundedEvent) {
	if e == nil {
		return
	}
	select {
	case e.settlementRefundedCh <- ev:
	default:
	}
}

func (e *Events) publishTransferInitiated(ev *agreement.TransferInitiatedEvent) {
	if e == nil {
		return
	}
	select {
	case e.transferInitiatedCh <- ev:
	default:
	}
}

func (e *Events) publishTransferCompleted(ev *agreement.TransferCompletedEvent) {
	if e == nil {
		return
	}
	select {
	case e.transferCompletedCh <- ev:
	default:
	}
}

func (e *Events) publishTransferRefunded(ev *agreement.TransferRefundedEvent) {
	if e == nil {
		return
	}
	select {
	case e.transferRefundedCh <- ev:
	default:
	}
}
