package main

import (
	"bufio"
	"flag"
	"math/rand"
	"os"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/edgelist"
)

var log = util.New("GenData", util.LogLevelInfo)

// chunkEdges bounds the edges held in memory between writes.
const chunkEdges = 1 << 16

func main() {
	numNodes := flag.Int("nodes", 1000000, "Vertex ids are drawn from [1, nodes]")
	numEdges := flag.Int("edges", 5000000, "Number of edges to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	outPath := flag.String("out", "data.txt", "Output edge list")
	flag.Parse()

	if *numNodes <= 0 || int64(*numNodes) > types.MaxVertexId {
		log.Fatalf("nodes must be in [1, %d]: %d", types.MaxVertexId, *numNodes)
	}
	if *numEdges < 0 {
		log.Fatalf("edges cannot be negative: %d", *numEdges)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *outPath, err)
	}
	w := bufio.NewWriter(f)

	rnd := rand.New(rand.NewSource(*seed))
	chunk := make([]types.Edge, 0, chunkEdges)
	for written := 0; written < *numEdges; {
		chunk = chunk[:0]
		for ; len(chunk) < chunkEdges && written < *numEdges; written++ {
			chunk = append(chunk, types.Edge{
				Src: types.VertexId(rnd.Intn(*numNodes) + 1),
				Dst: types.VertexId(rnd.Intn(*numNodes) + 1),
			})
		}
		if err := edgelist.Write(w, chunk); err != nil {
			log.Fatalf("Failed to write edges: %v", err)
		}
	}

	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to write edges: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to write edges: %v", err)
	}
	log.Printf("Wrote %d edges over %d vertices to %s", *numEdges, *numNodes, *outPath)
}
