package core

import "time"

// State names the phases of the agent's action cycle.
type State string

const (
	// StateIdle: nothing in flight.
	StateIdle State = "IDLE"
	// StateSelecting: decaying desires and picking the most urgent one.
	StateSelecting State = "SELECTING"
	// StateAwaitingAction: composing and executing the chosen action.
	StateAwaitingAction State = "AWAITING_ACTION"
	// StateCameraRequested: the chosen action needs an image the caller has
	// not supplied yet.
	StateCameraRequested State = "CAMERA_REQUESTED"
	// StateIntegrating: folding the outcome back into the stores.
	StateIntegrating State = "INTEGRATING"
)

// ChatRequest is one user message to the agent.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`

	// ImageBase64/ImageMediaType carry an optional camera frame attached
	// to the message.
	ImageBase64    string `json:"image_base64,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
}

// ChatResult is the agent's reply to a chat request.
type ChatResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`

	// DesireID names the desire the exchange served, if any.
	DesireID string `json:"desire_id,omitempty"`
}

// TickRequest triggers one autonomous cycle.
type TickRequest struct {
	SessionID string `json:"session_id,omitempty"`

	// Force bypasses the minimum-interval guard.
	Force bool `json:"force,omitempty"`

	// ImageBase64/ImageMediaType answer a previous camera request.
	ImageBase64    string `json:"image_base64,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
}

// TickResult is the outcome of one autonomous cycle.
type TickResult struct {
	State State `json:"state"`

	// DesireID and DesireName identify the selected desire. Empty when the
	// persona was content and the cycle idled.
	DesireID   string `json:"desire_id,omitempty"`
	DesireName string `json:"desire_name,omitempty"`

	// Utterance is what the agent chose to say, empty on an idle cycle.
	Utterance string `json:"utterance,omitempty"`

	// CameraRequested is set when the cycle stopped to ask for an image.
	CameraRequested bool `json:"camera_requested,omitempty"`
}

// TickEvent is one entry of the autonomous event feed.
type TickEvent struct {
	ID         int64     `json:"id"`
	At         time.Time `json:"at"`
	State      State     `json:"state"`
	DesireID   string    `json:"desire_id,omitempty"`
	DesireName string    `json:"desire_name,omitempty"`
	Utterance  string    `json:"utterance,omitempty"`
}
