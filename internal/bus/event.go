package bus

import "time"

// Event is what flows over the bus. Kind uses dotted namespaces
// ("message.received", "feed.users") so subscribers can match a prefix.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
