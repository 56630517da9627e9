package binance

// Adapter bundles the binance fetcher, parser and stream into the
// ExchangeAdapter the synchronizer consumes.
type Adapter struct {
	*SyncAPI
	*UpdateParser
	*StreamAPI
}

func NewAdapter(syncAPI *SyncAPI, streamAPI *StreamAPI) *Adapter {
	return &Adapter{
		SyncAPI:      syncAPI,
		UpdateParser: &UpdateParser{},
		StreamAPI:    streamAPI,
	}
}

func (a *Adapter) Name() string {
	return "binance"
}
