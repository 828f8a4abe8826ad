package edit

import (
	"context"

	"github.com/joeblew999/plat-wfs/internal/feature"
)

// DefaultStrip lists computed properties the server recomputes itself.
var DefaultStrip = []string{"bbox", "boundedBy"}

// Transaction is a batched write: three disjoint feature sets. Features are
// clones taken when the transaction was built.
type Transaction struct {
	Inserts []*feature.Feature
	Updates []*feature.Feature
	Deletes []*feature.Feature

	revs map[string]uint64
}

// Empty reports whether there is nothing to send.
func (tx *Transaction) Empty() bool {
	return tx.Len() == 0
}

// Len returns the total number of operations.
func (tx *Transaction) Len() int {
	return len(tx.Inserts) + len(tx.Updates) + len(tx.Deletes)
}

// Result summarizes a committed transaction.
type Result struct {
	Inserted    int
	Updated     int
	Deleted     int
	InsertedIDs []string
}

// Submitter sends a non-empty transaction to the feature service.
type Submitter interface {
	Submit(ctx context.Context, tx *Transaction) (*Result, error)
}

// Builder partitions tracked features into a Transaction.
type Builder struct {
	strip []string
}

// NewBuilder creates a builder that drops the named properties from every
// feature it emits. With no names it uses DefaultStrip.
func NewBuilder(strip ...string) *Builder {
	if len(strip) == 0 {
		strip = DefaultStrip
	}
	return &Builder{strip: strip}
}

// Build partitions features by tag, preserving their order. Unmodified
// features are left out.
func (b *Builder) Build(features []*feature.Feature, t *Tracker) *Transaction {
	tx := &Transaction{revs: make(map[string]uint64)}
	for _, f := range features {
		var dst *[]*feature.Feature
		switch t.Tag(f.ID) {
		case feature.Added:
			dst = &tx.Inserts
		case feature.Updated:
			dst = &tx.Updates
		case feature.Removed:
			dst = &tx.Deletes
		default:
			continue
		}
		c := f.Clone()
		for _, name := range b.strip {
			delete(c.Properties, name)
		}
		*dst = append(*dst, c)
		tx.revs[f.ID] = t.Revision(f.ID)
	}
	return tx
}
