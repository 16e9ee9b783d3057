package domain

// PushFunc hands one event to a connection's transport. It may block until
// the transport accepts the frame; returning an error drops the connection
type PushFunc func(Event) error

// SubscriberPort is the connection-facing surface of the registry.
// Transports register connections, manage their subjects, and must call
// DropConn when the underlying connection goes away
type SubscriberPort interface {
	Connect(connID string, push PushFunc) error
	Subscribe(connID, subject string)
	Unsubscribe(connID, subject string)
	DropConn(connID string)
}

// PublisherPort accepts events for fan-out. It never blocks the caller;
// the method set matches the dispatcher's fan-out seam
type PublisherPort interface {
	Publish(subject, kind string, payload any)
}
