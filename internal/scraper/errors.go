package scraper

import (
	"errors"
	"fmt"
)

// ErrSessionLaunch indicates no page source could be opened. There is no
// session to degrade from, so the scrape call fails outright.
var ErrSessionLaunch = errors.New("page source launch failed")

// ExtractionError marks a per-page extraction failure (navigation timeout,
// unparsable DOM). Walkers skip these; single-product scrapes absorb them.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
