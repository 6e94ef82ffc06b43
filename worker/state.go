// Package worker is an in-process stand-in for the browser's service worker
// container: it installs and activates worker versions, serves requests
// through the active worker and drives the client-side update lifecycle.
package worker

// State of a worker version
type State string

const (
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// EventType names a host event
type EventType string

const (
	EventUpdateFound      EventType = "updatefound"      // a new version started installing over an existing registration
	EventStateChange      EventType = "statechange"      // a worker changed state
	EventControllerChange EventType = "controllerchange" // a different worker now serves requests
)

// Event is delivered to host subscribers.
type Event struct {
	Type   EventType
	Worker *Worker
	State  State
}

// Message is a control message posted to a worker.
type Message struct {
	Type string `json:"type"`
}

// MessageSkipWaiting asks a waiting worker to activate immediately.
const MessageSkipWaiting = "SKIP_WAITING"
