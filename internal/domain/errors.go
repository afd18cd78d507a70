package domain

import "fmt"

// FetchError signals that a listing page could not be loaded. The crawl
// aborts once these accumulate past the configured ceiling.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeliveryError signals that one page batch could not be delivered after
// exhausting all retry attempts. The crawl continues past it.
type DeliveryError struct {
	Page     int
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver page %d after %d attempts: %v", e.Page, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
