package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/busalloc/core/metrics"
)

func TestInfluxSinkRecordAllocation(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.AllocationEvent{
		RunID:      "r1",
		Status:     "solved",
		Objective:  1500.25,
		Routes:     4,
		Slots:      24,
		BusesTotal: 31,
		SolveTime:  1200 * time.Millisecond,
		Time:       now,
	}
	if err := sink.RecordAllocation(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("allocation_run").
		AddTag("run_id", "r1").
		AddTag("status", "solved").
		AddTag("suboptimal", "false").
		AddField("objective", 1500.25).
		AddField("routes", 4).
		AddField("slots", 24).
		AddField("buses_total", 31).
		AddField("solve_ms", 1200.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body:\n%s\nwant:\n%s", body, expected)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestInfluxSinkRecordKPI(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(b)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	ev := coremetrics.KPIEvent{RunID: "r1", Time: time.Now()}
	ev.Summary.TotalTrips = 12
	ev.Summary.AvgLoadFactor = 0.625
	if err := sink.RecordKPI(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(bodies) != 1 || !strings.HasPrefix(bodies[0], "run_kpi,run_id=r1") {
		t.Errorf("bodies: %#v", bodies)
	}
	if !strings.Contains(bodies[0], "total_trips=12i") {
		t.Errorf("missing field in %s", bodies[0])
	}
}
