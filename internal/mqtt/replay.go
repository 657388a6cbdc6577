package mqtt

// queuedPublish is an outbound message held while the broker is unreachable.
type queuedPublish struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// replayQueue holds outbound publishes while the broker connection is down
// and hands them back oldest-first on reconnect. Bounded: once the limit is
// reached, each new publish evicts the oldest queued one. Not safe for
// concurrent use; RealPublisher guards it with its own mutex.
type replayQueue struct {
	limit   int
	pending []queuedPublish
	evicted int
}

func newReplayQueue(limit int) *replayQueue {
	return &replayQueue{limit: limit}
}

func (q *replayQueue) enqueue(msg queuedPublish) {
	if len(q.pending) >= q.limit {
		copy(q.pending, q.pending[1:])
		q.pending[len(q.pending)-1] = msg
		q.evicted++
		return
	}
	q.pending = append(q.pending, msg)
}

// drain empties the queue, returning the queued publishes in order and the
// number of publishes evicted since the last drain.
func (q *replayQueue) drain() ([]queuedPublish, int) {
	out, evicted := q.pending, q.evicted
	q.pending = nil
	q.evicted = 0
	return out, evicted
}

func (q *replayQueue) size() int {
	return len(q.pending)
}
