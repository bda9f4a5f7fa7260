// Package graph maintains the insured-party overlap mirror: one node per insured
// party linked to deduplicated phone and address attribute nodes.
package graph

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the graph store cannot be reached or a query fails.
var ErrUnavailable = errors.New("graph store unavailable")

// Overlap weights.
const (
	PhoneOverlapWeight   = 30
	AddressOverlapWeight = 20
)

// InsuredNode is the projection of an insured party stored in the graph.
type InsuredNode struct {
	ID           int64
	Name         string
	NationalCode string
	Phone        string
	Address      string
}

func (n InsuredNode) normalized() InsuredNode {
	n.Phone = NormalizePhone(n.Phone)
	n.Address = NormalizeAddress(n.Address)
	return n
}

// Overlap counts the distinct other insured parties sharing an attribute with one party.
type Overlap struct {
	PhoneOverlaps   int
	AddressOverlaps int
}

// Score applies the fixed weighting formula.
func (o Overlap) Score() float64 {
	return float64(o.PhoneOverlaps*PhoneOverlapWeight + o.AddressOverlaps*AddressOverlapWeight)
}

// Store is the fixed contract of the graph mirror. Implementations must make
// UpsertInsured atomic per insured party and must not block upserts of other parties.
type Store interface {
	// UpsertInsured replaces the node for n.ID and links it to its attribute nodes.
	UpsertInsured(ctx context.Context, n InsuredNode) error
	// DeleteInsured removes the node and its relationships. Missing nodes are not an error.
	DeleteInsured(ctx context.Context, id int64) error
	// ComputeOverlapScore counts overlaps for id. A missing node yields a zero Overlap.
	ComputeOverlapScore(ctx context.Context, id int64) (Overlap, error)
	// PruneOrphanAttributes removes attribute nodes no insured node links to.
	PruneOrphanAttributes(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
