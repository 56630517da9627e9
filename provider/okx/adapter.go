package okx

// Adapter bundles the okx fetcher, parser and stream into the
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
	return "okx"
}
