package sink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

func startTestServer(t *testing.T) (*LiveServer, *httptest.Server) {
	t.Helper()
	s := NewLiveServer(0)
	ts := httptest.NewServer(http.HandlerFunc(s.handleWS))
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func dialViewer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForViewers(t *testing.T, s *LiveServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		have := len(s.clients)
		s.mu.RUnlock()
		if have == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d viewers", n)
}

func TestLiveServerBroadcast(t *testing.T) {
	s, ts := startTestServer(t)
	conn := dialViewer(t, ts)
	waitForViewers(t, s, 1)

	want := loadcell.Sample{T: 1.25, Values: []float64{10, 20, 30}}
	if err := s.Accept(want); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got loadcell.Sample
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	if got.T != want.T || len(got.Values) != 3 || got.Values[2] != 30 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLiveServerSlowViewerDoesNotBlock(t *testing.T) {
	s, ts := startTestServer(t)
	dialViewer(t, ts) // never reads
	waitForViewers(t, s, 1)

	// Far more samples than the viewer buffer holds; Accept must return
	// promptly every time.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < viewerSendBuffer*10; i++ {
			s.Accept(loadcell.Sample{T: float64(i), Values: []float64{1}})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Accept blocked on a slow viewer")
	}
}

func TestLiveServerLatestEndpoint(t *testing.T) {
	s := NewLiveServer(0)
	defer s.Close()

	// No data yet.
	rr := httptest.NewRecorder()
	s.handleLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("empty server: got status %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	if err := s.Accept(loadcell.Sample{T: 2.5, Values: []float64{7}}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	rr = httptest.NewRecorder()
	s.handleLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}

	var got loadcell.Sample
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.T != 2.5 || len(got.Values) != 1 || got.Values[0] != 7 {
		t.Errorf("unexpected latest sample: %+v", got)
	}
}
