package observability

import (
	"strconv"
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	URLsRegistered    uint64            `json:"urls_registered"`
	ChecksStored      uint64            `json:"checks_stored"`
	ChecksUnavailable uint64            `json:"checks_unavailable"`
	ErrorsTotal       uint64            `json:"errors_total"`
	CheckSecondsAvg   float64           `json:"check_seconds_avg"`
	StatusClasses     map[string]uint64 `json:"status_classes,omitempty"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	urlsRegistered    uint64
	checksStored      uint64
	checksUnavailable uint64
	errorsTotal       uint64

	checkCount uint64
	checkNanos uint64

	statsMu           sync.Mutex
	statusClasses     = map[string]uint64{}
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncURLsRegistered() {
	atomic.AddUint64(&urlsRegistered, 1)
}

// IncCheckStored counts a stored check under its status class ("2xx", "4xx", ...).
func IncCheckStored(statusCode int) {
	atomic.AddUint64(&checksStored, 1)
	statsMu.Lock()
	statusClasses[statusClass(statusCode)]++
	statsMu.Unlock()
}

func IncCheckUnavailable() {
	atomic.AddUint64(&checksUnavailable, 1)
}

func ObserveCheckDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&checkCount, 1)
	atomic.AddUint64(&checkNanos, uint64(seconds*1e9))
}

func IncError(errType, component string) {
	if errType == "" {
		errType = "unknown"
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	statusCopy := copyMap(statusClasses)
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&checkCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&checkNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		URLsRegistered:    atomic.LoadUint64(&urlsRegistered),
		ChecksStored:      atomic.LoadUint64(&checksStored),
		ChecksUnavailable: atomic.LoadUint64(&checksUnavailable),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		CheckSecondsAvg:   avg,
		StatusClasses:     statusCopy,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

// Reset zeroes every counter. Used by tests.
func Reset() {
	atomic.StoreUint64(&urlsRegistered, 0)
	atomic.StoreUint64(&checksStored, 0)
	atomic.StoreUint64(&checksUnavailable, 0)
	atomic.StoreUint64(&errorsTotal, 0)
	atomic.StoreUint64(&checkCount, 0)
	atomic.StoreUint64(&checkNanos, 0)

	statsMu.Lock()
	statusClasses = map[string]uint64{}
	errorsByType = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
	statsMu.Unlock()
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
