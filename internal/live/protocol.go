package live

import (
	"encoding/json"
	"fmt"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// Server to client message types
const (
	MsgHello = "hello"
	MsgFrame = "frame"
	MsgOpen  = "select"
	MsgClose = "close"
	MsgHover = "hover"
	MsgError = "error"
)

// Client to server message types. Anything else is decoded as an
// interact.Event (pointerdown, wheel, key, touchstart, ...).
const (
	MsgResize = "resize"
	MsgFilter = "filter"
	MsgFocus  = "focus"
	MsgFit    = "fit"
)

// Outbound is every message the server sends
type Outbound struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	Width    float64            `json:"width,omitempty"`
	Height   float64            `json:"height,omitempty"`
	Commands []render.Command   `json:"commands,omitempty"`
	Detail   *conceptmap.Detail `json:"detail,omitempty"`
	ID       *string            `json:"id,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// Inbound carries the control messages a client sends
type Inbound struct {
	Type   string             `json:"type"`
	Width  float64            `json:"width,omitempty"`
	Height float64            `json:"height,omitempty"`
	Filter *conceptmap.Filter `json:"filter,omitempty"`
	ID     string             `json:"id,omitempty"`
}

// Decode parses one client message. Exactly one of the results is set.
func Decode(data []byte) (*Inbound, *interact.Event, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, nil, fmt.Errorf("live: decode message: %w", err)
	}
	switch in.Type {
	case MsgResize, MsgFilter, MsgFocus, MsgFit:
		return &in, nil, nil
	}
	ev, err := interact.DecodeEvent(data)
	if err != nil {
		return nil, nil, fmt.Errorf("live: %w", err)
	}
	return nil, &ev, nil
}
