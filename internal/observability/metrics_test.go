package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	counter := httpRequests.WithLabelValues("GET", "/observe-test", "200")
	before := testutil.ToFloat64(counter)

	ObserveRequest("GET", "/observe-test", 200, 15*time.Millisecond)
	ObserveRequest("GET", "/observe-test", 200, 25*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests counted = %v, want 2", got)
	}
}

func TestObserveQuery_CountsErrors(t *testing.T) {
	errs := queryErrors.WithLabelValues("test", "find")
	before := testutil.ToFloat64(errs)

	ObserveQuery("test", "find", nil, time.Millisecond)
	ObserveQuery("test", "find", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(errs) - before; got != 1 {
		t.Errorf("errors counted = %v, want 1", got)
	}
}
