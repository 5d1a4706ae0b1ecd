package engine

import (
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	windowstorev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/window-store/v1"
	"github.com/segmentio/kafka-go"
)

type partition struct {
	topic string
	id    int
}

func partitionOf(msg kafka.Message) partition {
	return partition{topic: msg.Topic, id: msg.Partition}
}

type windowID struct {
	symbol  string
	startMs int64
}

func windowOf(c *candlev1.Candle) windowID {
	return windowID{symbol: c.Symbol, startMs: c.WindowStart.UnixMilli()}
}

// offsets decides what the engine may commit on each partition.
//
// Without a window store an open window lives only in memory, so the first message
// folded into it must stay uncommitted until the window closes. With a store, a
// restored window carries the position it was saved at and messages up to that
// position were already folded.
type offsets struct {
	first     map[windowID]kafka.Message
	committed map[partition]int64
	folded    map[partition]int64
}

func newOffsets() *offsets {
	return &offsets{
		first:     make(map[windowID]kafka.Message),
		committed: make(map[partition]int64),
		folded:    make(map[partition]int64),
	}
}

// seen records the partition of msg. The first message fetched from a partition sits
// at the group's committed offset, so everything before it is already committed.
func (o *offsets) seen(msg kafka.Message) {
	p := partitionOf(msg)
	if _, ok := o.committed[p]; !ok {
		o.committed[p] = msg.Offset - 1
	}
}

// hold keeps msg uncommitted while the window c is open, unless an earlier message
// of c already does.
func (o *offsets) hold(c *candlev1.Candle, msg kafka.Message) {
	if c == nil {
		return
	}
	id := windowOf(c)
	if _, ok := o.first[id]; !ok {
		o.first[id] = msg
	}
}

func (o *offsets) release(closed []*candlev1.Candle) {
	for _, c := range closed {
		delete(o.first, windowOf(c))
	}
}

// target returns the message to commit once msg is handled. It is msg itself unless
// an open window still depends on an earlier offset of the same partition. ok is
// false when the partition is already committed that far.
func (o *offsets) target(msg kafka.Message) (to kafka.Message, ok bool) {
	p := partitionOf(msg)
	to = msg
	for _, m := range o.first {
		if partitionOf(m) == p && m.Offset <= to.Offset {
			to = kafka.Message{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset - 1}
		}
	}

	if to.Offset < 0 {
		return kafka.Message{}, false
	}
	if last, found := o.committed[p]; found && to.Offset <= last {
		return kafka.Message{}, false
	}
	return to, true
}

func (o *offsets) committedTo(msg kafka.Message) {
	o.committed[partitionOf(msg)] = msg.Offset
}

// restored remembers the highest position folded into any restored window of a partition.
// Windows saved without a position are ignored.
func (o *offsets) restored(pos windowstorev1.Position) {
	if pos.Topic == "" {
		return
	}
	p := partition{topic: pos.Topic, id: pos.Partition}
	if last, ok := o.folded[p]; !ok || pos.Offset > last {
		o.folded[p] = pos.Offset
	}
}

// replayed reports whether msg was folded into a window before the restart.
func (o *offsets) replayed(msg kafka.Message) bool {
	last, ok := o.folded[partitionOf(msg)]
	return ok && msg.Offset <= last
}

func positionOf(msg kafka.Message) windowstorev1.Position {
	return windowstorev1.Position{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset}
}
