// Package trips holds the driver trip model and the presentation helpers
// used when listing trips.
package trips

import (
	"strings"
	"time"
)

type State string

const (
	StateCreated    State = "CREATED"
	StateClosed     State = "CLOSED"
	StateInProgress State = "IN_PROGRESS"
	StateFinished   State = "FINISHED"
	StateCancelled  State = "CANCELLED"
)

type Vehicle struct {
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	Domain          string `json:"domain"`
	VehicleTypeName string `json:"vehicleTypeName"`
}

// TripDriver is a trip as seen by its driver.
type TripDriver struct {
	ID              int64     `json:"id"`
	StartCity       string    `json:"startCity"`
	DestinationCity string    `json:"destinationCity"`
	SeatPrice       float64   `json:"seatPrice"`
	StartDateTime   time.Time `json:"startDateTime"`
	TripState       State     `json:"tripState"`
	Vehicle         Vehicle   `json:"vehicle"`
}

// VehicleImage returns the public image URL for the trip's vehicle type.
func (t TripDriver) VehicleImage(publicPrefix string) string {
	return strings.TrimRight(publicPrefix, "/") + "/" + strings.ToLower(t.Vehicle.VehicleTypeName) + ".png"
}

type Action string

const (
	ActionNone  Action = ""
	ActionClose Action = "close"
	ActionStart Action = "start"
)

// Button describes the call to action shown for a trip state.
type Button struct {
	Label    string
	Icon     string
	Disabled bool
	Action   Action
	// NextRoute is where the client navigates once the action succeeds.
	NextRoute string
}

var buttons = map[State]Button{
	StateCreated:    {Label: "Close trip", Icon: "lock", Action: ActionClose},
	StateClosed:     {Label: "Start trip", Icon: "play", Action: ActionStart, NextRoute: "/current-trip"},
	StateInProgress: {Label: "In progress", Icon: "car", Disabled: true},
	StateFinished:   {Label: "Finished", Icon: "check", Disabled: true},
	StateCancelled:  {Label: "Cancelled", Icon: "x", Disabled: true},
}

// ButtonFor returns the configuration for state and false for unknown states.
func ButtonFor(state State) (Button, bool) {
	b, ok := buttons[state]
	return b, ok
}
