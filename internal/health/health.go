package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
)

// LedgerStatus is what readiness reports per ledger.
type LedgerStatus struct {
	Name        string `json:"name"`
	RecordCount uint64 `json:"record_count"`
}

// Counter exposes the record count of a ledger.
type Counter func() uint64

var (
	isReady     int32
	counters    = make(map[string]Counter)
	statusMutex sync.RWMutex
)

func SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&isReady, 1)
	} else {
		atomic.StoreInt32(&isReady, 0)
	}
}

// RegisterLedger adds a ledger to the readiness report.
func RegisterLedger(name string, counter Counter) {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	counters[name] = counter
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	statusMutex.RLock()
	defer statusMutex.RUnlock()

	if len(counters) == 0 || atomic.LoadInt32(&isReady) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	statuses := make([]LedgerStatus, 0, len(counters))
	for name, counter := range counters {
		statuses = append(statuses, LedgerStatus{Name: name, RecordCount: counter()})
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["ledgers"] = statuses

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
