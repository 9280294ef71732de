package scraper

import "errors"

// ErrNoContent marks a fetch that returned nothing usable.
var ErrNoContent = errors.New("no usable content")

// ErrSourceLoad marks a failure to load the source list. This is the only
// error class that surfaces as a top-level run failure.
var ErrSourceLoad = errors.New("source load failed")
