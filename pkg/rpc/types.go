package rpc

import "github.com/pjavanrood/csrbench/internal/types"

// ------------------------------------------------------------
// Request and response types exchanged between the coordinator and
// partitions. A traversal is Reset, seeded with one Claim, then runs
// Expand/Claim rounds, one pair per BFS level.
// ------------------------------------------------------------

// Load request and response
type LoadRequest struct {
	PartitionID   int              // The partition receiving the data
	NumPartitions int              // Total number of partitions
	Algorithm     string           // Partitioning algorithm ("hash" or "range")
	NumVertices   int              // Vertex count of the whole graph
	Offsets       []int64          // Local CSR offsets, one entry per owned vertex plus one
	Adjacency     []types.VertexId // Global destination ids of the owned vertices' edges
}

type LoadResponse struct {
	Success       bool // Whether the partition accepted the data
	OwnedVertices int  // Number of vertices owned by the partition
	Edges         int  // Number of edges stored by the partition
}

// ------------------------------------------------------------

// Reset request and response
type ResetRequest struct {
	TraversalID uint64 // Identifies the traversal the next rounds belong to
}

type ResetResponse struct {
	Success bool
}

// ------------------------------------------------------------

// Claim request and response
type ClaimRequest struct {
	TraversalID uint64
	Level       int32            // Level the claimed vertices are discovered at
	Candidates  []types.VertexId // Owned vertices proposed by the previous Expand round, in proposal order
}

type ClaimResponse struct {
	Claimed []types.VertexId // Candidates this partition had not visited, first proposal wins
}

// ------------------------------------------------------------

// Expand request and response
type ExpandRequest struct {
	TraversalID uint64
	Level       int32 // Level of the frontier being expanded
}

type ExpandResponse struct {
	Outbox [][]types.VertexId // Neighbor candidates bucketed by owning partition
	Edges  int                // Number of edges scanned
}

// ------------------------------------------------------------

// Status request and response
type StatusRequest struct{}

type StatusResponse struct {
	PartitionID   int
	Loaded        bool
	OwnedVertices int
	Edges         int
	TraversalID   uint64
}
