package ws

// Push topics an observer can subscribe to.
const (
	TopicMetricsHost = "metrics.host"
	TopicVProcEvents = "vproc.events"
	TopicFSEvents    = "fs.events"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []string{TopicMetricsHost, TopicVProcEvents, TopicFSEvents}

// IsKnownTopic reports whether topic is one of AllTopics.
func IsKnownTopic(topic string) bool {
	for _, t := range AllTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// Message is a server push on a topic.
type Message struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// Reply acknowledges a client action.
type Reply struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}
