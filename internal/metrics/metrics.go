package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	PositionsOpened Counter
	PositionsClosed Counter
	QuotesRejected  Counter
	FeedErrors      Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		PositionsOpened: n,
		PositionsClosed: n,
		QuotesRejected:  n,
		FeedErrors:      n,
	}
}
