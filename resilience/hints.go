package resilience

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRateLimitWindow    = "X-Rate-Limit-Window"
	HeaderRetryAfter         = "Retry-After"
)

// Hints are the rate-limit signals a response carried.
type Hints struct {
	Remaining    int           `json:"remaining"`
	HasRemaining bool          `json:"has_remaining"`
	ResetAfter   time.Duration `json:"reset_after"`
	RetryAfter   time.Duration `json:"retry_after"`
}

// Empty reports whether the response carried no rate-limit signal at all
func (h Hints) Empty() bool {
	return !h.HasRemaining && h.ResetAfter == 0 && h.RetryAfter == 0
}

// ParseHints extracts rate-limit hints from response headers.
// Malformed values are ignored.
func ParseHints(header http.Header, now time.Time) Hints {
	var h Hints
	if header == nil {
		return h
	}
	if v := strings.TrimSpace(header.Get(HeaderRateLimitRemaining)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			h.Remaining = n
			h.HasRemaining = true
		}
	}
	if v := strings.TrimSpace(header.Get(HeaderRateLimitWindow)); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			h.ResetAfter = time.Duration(secs) * time.Second
		}
	}
	h.RetryAfter = parseRetryAfter(header.Get(HeaderRetryAfter), now)
	return h
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
