package waitlist

import "sync/atomic"

// Resource names one of the coordinator's collections.
type Resource int

const (
	ResourceMine Resource = iota
	ResourceAvailable
	ResourcePositions
	resourceCount
)

func (r Resource) String() string {
	switch r {
	case ResourceMine:
		return "mine"
	case ResourceAvailable:
		return "available"
	case ResourcePositions:
		return "positions"
	default:
		return "unknown"
	}
}

// BusyPolicy decides which loads are dropped while others are in flight.
type BusyPolicy interface {
	// TryBegin marks r busy unless it already is; false means drop the call.
	TryBegin(r Resource) bool
	// Begin marks r busy unconditionally (forced loads and mutations).
	Begin(r Resource)
	End(r Resource)
	Busy(r Resource) bool
}

// SharedBusy is a single flag shared by all three collections: a load of
// one collection suppresses unforced loads of the other two.
type SharedBusy struct {
	flag atomic.Bool
}

func (b *SharedBusy) TryBegin(Resource) bool { return b.flag.CompareAndSwap(false, true) }
func (b *SharedBusy) Begin(Resource)         { b.flag.Store(true) }
func (b *SharedBusy) End(Resource)           { b.flag.Store(false) }
func (b *SharedBusy) Busy(Resource) bool     { return b.flag.Load() }

// PerResourceBusy keeps an independent flag per collection.
type PerResourceBusy struct {
	flags [resourceCount]atomic.Bool
}

func (b *PerResourceBusy) TryBegin(r Resource) bool { return b.flags[r].CompareAndSwap(false, true) }
func (b *PerResourceBusy) Begin(r Resource)         { b.flags[r].Store(true) }
func (b *PerResourceBusy) End(r Resource)           { b.flags[r].Store(false) }
func (b *PerResourceBusy) Busy(r Resource) bool     { return b.flags[r].Load() }

// NewBusyPolicy maps the waitlist.busy_policy setting to a policy.
// Unknown names fall back to the shared flag.
func NewBusyPolicy(name string) BusyPolicy {
	if name == "per_resource" {
		return &PerResourceBusy{}
	}
	return &SharedBusy{}
}
