package types

import "math"

type VertexId int32
type PartitionId int

// MaxVertexId is the largest vertex id an edge list may carry.
const MaxVertexId = math.MaxInt32 - 1

// Edge is a directed (Src, Dst) pair as read from an edge list.
type Edge struct {
	Src VertexId
	Dst VertexId
}
