package broadcast

import "sync"

// Record is a message captured by a Recorder. All is set for messages sent
// to every user.
type Record struct {
	UserID  uint32
	All     bool
	Message Message
}

// Recorder is a Sink that keeps every message in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Publish(userID uint32, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{UserID: userID, Message: msg})
	return nil
}

func (r *Recorder) PublishAll(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{All: true, Message: msg})
	return nil
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Kinds returns the kinds recorded for a user, in order.
func (r *Recorder) Kinds(userID uint32) []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kinds []Kind
	for _, rec := range r.records {
		if !rec.All && rec.UserID == userID {
			kinds = append(kinds, rec.Message.Kind)
		}
	}
	return kinds
}

// Reset forgets all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
