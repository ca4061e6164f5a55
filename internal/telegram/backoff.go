package telegram

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	minRetryDelay = 1 * time.Second
	maxRetryDelay = 15 * time.Second
)

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// retryDelay picks how long to wait after a failed GetUpdates call, honouring
// Telegram's "retry after N" hint on 429 responses.
func retryDelay(err error) time.Duration {
	d := minRetryDelay
	s := strings.ToLower(err.Error())
	var ne net.Error
	switch {
	case strings.Contains(s, "too many requests"):
		d = 3 * time.Second
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				d = time.Duration(n) * time.Second
			}
		}
	case errors.As(err, &ne) && ne.Timeout():
		d = 2 * time.Second
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}
