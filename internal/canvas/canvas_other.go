//go:build !(js && wasm)

package canvas

import (
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

// Host is only available in the browser
type Host struct{}

// Mount always fails outside the browser
func Mount(string, conceptmap.Options, graph.Payload) (*Host, error) {
	return nil, ErrUnsupported
}

// Release is a no-op outside the browser
func (h *Host) Release() {}
