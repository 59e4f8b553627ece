package service

// EventPublisher pushes lifecycle events to connected dashboard clients.
// Implemented by the websocket hub; a nil publisher disables broadcasting.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// Event names broadcast over the hub
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestApproved  = "request.approved"
	EventRequestRejected  = "request.rejected"
)
