// Package event defines the raw event schema (spec.md §3.1) and the
// columnar Batch representation C2 yields: parallel slices rather than a
// slice of row structs, so a fold step (internal/cube) can scan one
// measure column at a time without per-row allocation — the same
// batch-oriented shape the teacher uses for its import pipeline
// (internal/import/mapper.go) and its event processor's buffered
// appender (internal/eventprocessor/appender.go).
package event

// Type enumerates the small categorical event types.
type Type uint8

const (
	TypeServe Type = iota
	TypeImpression
	TypeClick
	TypePurchase
)

// TypeFromString maps the raw CSV string to a Type. Returns ok=false for
// anything unrecognized.
func TypeFromString(s string) (Type, bool) {
	switch s {
	case "serve":
		return TypeServe, true
	case "impression":
		return TypeImpression, true
	case "click":
		return TypeClick, true
	case "purchase":
		return TypePurchase, true
	default:
		return 0, false
	}
}

func (t Type) String() string {
	switch t {
	case TypeServe:
		return "serve"
	case TypeImpression:
		return "impression"
	case TypeClick:
		return "click"
	case TypePurchase:
		return "purchase"
	default:
		return "unknown"
	}
}

// Batch is a columnar block of up to B events plus their derived time
// dimensions, computed once per batch by internal/timedim. All slices
// share the same length.
type Batch struct {
	TS            []int64
	Type          []Type
	AuctionID     []string
	AdvertiserID  []int64
	PublisherID   []int64
	BidPrice      []float64
	BidPriceNull  []bool
	UserID        []string
	TotalPrice    []float64
	TotalPriceNull []bool
	Country       []string

	Day    []string
	Hour   []string
	Minute []string
	Week   []string
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.TS) }

// NewBatch allocates a Batch with capacity cap for each column.
func NewBatch(cap int) *Batch {
	return &Batch{
		TS:             make([]int64, 0, cap),
		Type:           make([]Type, 0, cap),
		AuctionID:      make([]string, 0, cap),
		AdvertiserID:   make([]int64, 0, cap),
		PublisherID:    make([]int64, 0, cap),
		BidPrice:       make([]float64, 0, cap),
		BidPriceNull:   make([]bool, 0, cap),
		UserID:         make([]string, 0, cap),
		TotalPrice:     make([]float64, 0, cap),
		TotalPriceNull: make([]bool, 0, cap),
		Country:        make([]string, 0, cap),
		Day:            make([]string, 0, cap),
		Hour:           make([]string, 0, cap),
		Minute:         make([]string, 0, cap),
		Week:           make([]string, 0, cap),
	}
}
