package clearbit

// Ledger records which input values have been queried during one run.
// It is owned by a single unit instance and is not safe for concurrent use.
type Ledger struct {
	seen map[string]bool
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]bool)}
}

// Seen reports whether value was already recorded
func (l *Ledger) Seen(value string) bool {
	return l.seen[value]
}

// Mark records value
func (l *Ledger) Mark(value string) {
	l.seen[value] = true
}

// Len returns the number of recorded values
func (l *Ledger) Len() int {
	return len(l.seen)
}
