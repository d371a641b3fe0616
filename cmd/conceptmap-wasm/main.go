//go:build js && wasm

// Command conceptmap-wasm mounts the map on the page's #map canvas.
// Concepts arrive through window.conceptMap.setConceptsData.
package main

import (
	"github.com/recera/conceptmap/internal/canvas"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

func main() {
	host, err := canvas.Mount("map", conceptmap.DefaultOptions(), graph.Payload{})
	if err != nil {
		panic(err)
	}
	defer host.Release()
	select {}
}
