package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents the category of a watcher error
type Kind string

const (
	// KindParse represents malformed search-term tokens
	KindParse Kind = "parse"
	// KindFetch represents network or scraping errors for one variant
	KindFetch Kind = "fetch"
	// KindRateLimit represents rate limiting by the listing source
	KindRateLimit Kind = "rate_limit"
	// KindCacheRead represents seen-cache read errors
	KindCacheRead Kind = "cache_read"
	// KindCacheWrite represents seen-cache write errors
	KindCacheWrite Kind = "cache_write"
	// KindNotify represents notification channel errors
	KindNotify Kind = "notify"
	// KindConfiguration represents configuration errors
	KindConfiguration Kind = "configuration"
)

// WatchError is the error type used across the pipeline
type WatchError struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *WatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Kind, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *WatchError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must abort the run. Only parse and
// configuration errors are fatal; everything else degrades with a warning.
func (e *WatchError) IsFatal() bool {
	switch e.Kind {
	case KindParse, KindConfiguration:
		return true
	default:
		return false
	}
}

// New creates a new WatchError
func New(kind Kind, source, message string, err error) *WatchError {
	return &WatchError{
		Kind:    kind,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewParse creates a new parse error for a search-term token
func NewParse(token, message string) *WatchError {
	return New(KindParse, token, message, nil)
}

// NewFetch creates a new fetch error
func NewFetch(source, message string, err error) *WatchError {
	return New(KindFetch, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *WatchError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(KindRateLimit, source, message, nil)
}

// NewCacheRead creates a new seen-cache read error
func NewCacheRead(path, message string, err error) *WatchError {
	return New(KindCacheRead, path, message, err)
}

// NewCacheWrite creates a new seen-cache write error
func NewCacheWrite(path, message string, err error) *WatchError {
	return New(KindCacheWrite, path, message, err)
}

// NewNotify creates a new notification error
func NewNotify(channel, message string, err error) *WatchError {
	return New(KindNotify, channel, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *WatchError {
	return New(KindConfiguration, "", message, err)
}

// KindOf returns the kind of err when it is a WatchError, or an empty Kind
func KindOf(err error) Kind {
	var we *WatchError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
