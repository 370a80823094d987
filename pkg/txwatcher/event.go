package txwatcher

// Event is emitted whenever the observed confirmation depth of a watched
// transaction changes.
type Event struct {
	TxHash        string
	Confirmations int
}
