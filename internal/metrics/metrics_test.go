package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bcye/structured-wikivoyage-exports/internal/sink"
)

func TestServerExposesPerSinkGauges(t *testing.T) {
	counts := map[string]sink.Counts{
		"filesystem": {Success: 3, Failure: 1},
		"csv":        {Success: 5, Failure: 0},
	}
	snapshot := func(name string) sink.Counts { return counts[name] }

	srv, err := New("127.0.0.1:0", []string{"filesystem", "csv"}, snapshot)
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(body)

	for _, want := range []string{
		`sink="filesystem"`,
		`outcome="success"`,
		`sink="csv"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestShutdownWithoutServeSucceeds(t *testing.T) {
	srv, err := New("127.0.0.1:0", nil, func(string) sink.Counts { return sink.Counts{} })
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown before serve should not error, got %v", err)
	}
}
