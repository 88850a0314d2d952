package ledger

// SetFault installs a hook that runs between the donation write and the
// aggregate update of every operation.
func (l *Ledger) SetFault(fn func(op string) error) {
	l.betweenWrites = fn
}
