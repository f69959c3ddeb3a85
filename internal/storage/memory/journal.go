package memory

import "pump-sniper/internal/storage"

// NewJournal returns a journal backed entirely by in-memory stores.
func NewJournal() *storage.Journal {
	return &storage.Journal{
		Tokens:       NewTokenStore(),
		Sessions:     NewSessionStore(),
		Buys:         NewBuyStore(),
		Observations: NewCurveObservationStore(),
	}
}
