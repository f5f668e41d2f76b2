package helpers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

func TestCalculateSignature(t *testing.T) {
	// known vector from RFC 4231, test case 2
	got := CalculateSignature("Jefe", []byte("what do ya want for nothing?"))
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"

	if got != want {
		t.Errorf("CalculateSignature() = %s, want %s", got, want)
	}

	if CalculateSignature("other", []byte("what do ya want for nothing?")) == want {
		t.Error("different secrets should not produce the same signature")
	}
}

func TestNotifierDeliversSignedEvent(t *testing.T) {
	var (
		mu       sync.Mutex
		gotKey   string
		gotSig   string
		gotCType string
		gotBody  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotKey = r.Header.Get("API-KEY")
		gotSig = r.Header.Get("HASH-SIGNATURE")
		gotCType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	event := &SessionNotifyEvent{
		Event: "session_started",
		Session: &NotifySessionInfo{
			SessionId: "demo-session",
			Sid:       "sid-001",
		},
	}

	n := NewNotifier(10, false, logger)
	n.AddInNotifyQueue(event, "testKey", "testSecret", []string{srv.URL})
	n.StopGracefully()

	mu.Lock()
	defer mu.Unlock()

	if gotKey != "testKey" {
		t.Errorf("API-KEY header = %s, want testKey", gotKey)
	}
	if gotCType != "application/json" {
		t.Errorf("Content-Type header = %s, want application/json", gotCType)
	}
	if want := CalculateSignature("testSecret", gotBody); gotSig != want {
		t.Errorf("HASH-SIGNATURE header = %s, want %s", gotSig, want)
	}

	received := new(SessionNotifyEvent)
	if err := json.Unmarshal(gotBody, received); err != nil {
		t.Fatalf("delivered body is not valid JSON: %v", err)
	}
	if received.Event != event.Event {
		t.Errorf("delivered event = %s, want %s", received.Event, event.Event)
	}
	if received.Session == nil || received.Session.SessionId != "demo-session" {
		t.Errorf("delivered session info does not match: %+v", received.Session)
	}
}

func TestToFixed(t *testing.T) {
	tests := []struct {
		num       float64
		precision int
		want      float64
	}{
		{2.25, 1, 2.3},
		{-2.25, 1, -2.3},
		{3.14159, 2, 3.14},
		{2.0, 2, 2.0},
	}

	for _, tt := range tests {
		if got := ToFixed(tt.num, tt.precision); got != tt.want {
			t.Errorf("ToFixed(%v, %d) = %v, want %v", tt.num, tt.precision, got, tt.want)
		}
	}
}
