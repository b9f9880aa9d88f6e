package common

import "sync/atomic"

// NodeId is a per-roster small integer identifying a node. Positive ids are
// "permanent" (assigned when a revision is written, stable across reads
// thereafter). Non-positive ids (zero and negative) are "temp" ids used only
// for in-memory construction, e.g. inside a merge's scratch roster; they
// must never be written to a database or appear in a canonical roster text.
type NodeId int64

// RootNodeId is the permanent id every roster's root directory carries.
const RootNodeId NodeId = 1

func (id NodeId) IsTemp() bool {
	return id <= 0
}

func (id NodeId) IsPermanent() bool {
	return id > 0
}

// NodeIdSource mints new node ids. Two implementations are provided:
// TempNodeIdSource (monotonic non-positive ids, for merge/diff scratch
// space) and PermanentNodeIdSource (monotonic positive ids, stable once a
// revision is written).
type NodeIdSource interface {
	Next() NodeId
}

// TempNodeIdSource yields a strictly decreasing sequence starting at -1, so
// that temp ids never collide with RootNodeId or any permanent id.
type TempNodeIdSource struct {
	counter int64
}

func NewTempNodeIdSource() *TempNodeIdSource {
	return &TempNodeIdSource{}
}

func (s *TempNodeIdSource) Next() NodeId {
	return NodeId(atomic.AddInt64(&s.counter, -1))
}

// PermanentNodeIdSource yields a strictly increasing sequence of positive
// ids. A real database-backed collaborator seeds Next from the highest id
// already stored; this implementation is the in-memory reference used by
// tests and by callers that don't yet have a database.
type PermanentNodeIdSource struct {
	counter int64
}

// NewPermanentNodeIdSource creates a source whose first Next() call returns
// last+1. Pass 0 to start fresh (first id minted is 1, i.e. RootNodeId).
func NewPermanentNodeIdSource(last NodeId) *PermanentNodeIdSource {
	return &PermanentNodeIdSource{counter: int64(last)}
}

func (s *PermanentNodeIdSource) Next() NodeId {
	return NodeId(atomic.AddInt64(&s.counter, 1))
}
