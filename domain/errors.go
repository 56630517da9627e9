package domain

import "errors"

var (
	ErrOrderBookNotFound = errors.New("order book not found")
	ErrUnknownExchange   = errors.New("unknown exchange")

	// Returned by the synchronizer's sequencing checks.
	ErrUpdateOutdated      = errors.New("orderbook update is outdated")
	ErrUpdateOutOfSequence = errors.New("orderbook update is out of sequence")

	// Snapshot fetch failure classes. Fetchers wrap transport details
	// around one of these so the synchronizer can match with errors.Is.
	ErrFetchNetwork         = errors.New("snapshot fetch: network failure")
	ErrFetchInvalidResponse = errors.New("snapshot fetch: invalid response")
	ErrFetchRateLimited     = errors.New("snapshot fetch: rate limited by exchange")
)
