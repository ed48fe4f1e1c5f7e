package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Topic names mirror the targeting scopes: a publish goes to exactly one
// topic, a subscriber listens on every topic addressed to them.
const TopicGlobal = "global"

// TopicRole returns the topic for a role audience
func TopicRole(roleID uuid.UUID) string {
	return "role:" + roleID.String()
}

// TopicUser returns the topic for a single-user audience
func TopicUser(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// TopicsFor returns the topics a caller should subscribe to
func TopicsFor(uc UserContext) []string {
	topics := []string{TopicGlobal, TopicUser(uc.UserID)}
	if uc.RoleID != uuid.Nil {
		topics = append(topics, TopicRole(uc.RoleID))
	}
	return topics
}

// SignalRepository defines the interface for live notification fan-out
type SignalRepository interface {
	// Subscribe registers one channel under every given topic and returns it
	// with a cancel function that removes the registrations.
	Subscribe(topics ...string) (<-chan *Notification, func(), error)

	// Publish publishes a notification to a topic
	Publish(topic string, n *Notification) error
}

// subscriber pairs a delivery channel with a done signal. The channel is
// never closed: deliveries race against cancellation, so senders select on
// done instead and the channel is left for the garbage collector.
type subscriber struct {
	ch   chan *Notification
	done chan struct{}
}

// signalRepository implements SignalRepository
type signalRepository struct {
	mutex      sync.Mutex
	topics     map[string]map[string]*subscriber
	bufferSize int
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(bufferSize int) SignalRepository {
	return &signalRepository{
		topics:     make(map[string]map[string]*subscriber),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a subscriber channel under each topic
func (r *signalRepository) Subscribe(topics ...string) (<-chan *Notification, func(), error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sub := &subscriber{
		ch:   make(chan *Notification, r.bufferSize),
		done: make(chan struct{}),
	}
	subscriberID := uuid.New().String()

	for _, topic := range topics {
		if _, exists := r.topics[topic]; !exists {
			r.topics[topic] = make(map[string]*subscriber)
		}
		r.topics[topic][subscriberID] = sub
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()

			for _, topic := range topics {
				if topicMap, exists := r.topics[topic]; exists {
					delete(topicMap, subscriberID)
					if len(topicMap) == 0 {
						delete(r.topics, topic)
					}
				}
			}

			close(sub.done)
		})
	}

	return sub.ch, cancel, nil
}

// Publish publishes a notification to a topic
func (r *signalRepository) Publish(topic string, n *Notification) error {
	r.mutex.Lock()

	topicMap, exists := r.topics[topic]
	if !exists {
		r.mutex.Unlock()
		return nil // No subscribers yet, so nothing to do
	}

	// Copy subscribers so channel sends happen outside the lock
	subscribers := make([]*subscriber, 0, len(topicMap))
	for _, sub := range topicMap {
		subscribers = append(subscribers, sub)
	}
	r.mutex.Unlock()

	if len(subscribers) > 0 {
		logrus.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"topic":           topic,
			"subscribers":     len(subscribers),
		}).Debug("Publishing notification to subscribers")
	}

	for _, sub := range subscribers {
		go func(sub *subscriber) {
			select {
			case sub.ch <- n:
			case <-sub.done:
			case <-time.After(100 * time.Millisecond):
				logrus.WithFields(logrus.Fields{
					"notification_id": n.ID,
					"topic":           topic,
				}).Warn("Failed to deliver notification to subscriber (channel full or blocked)")
			}
		}(sub)
	}

	return nil
}
