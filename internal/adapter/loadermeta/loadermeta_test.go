package loadermeta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

func newMetaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/versions/loader/1.20.1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"loader":{"version":"0.15.11","stable":true}},
			{"loader":{"version":"0.14.21"}},
			{"loader":{}},
			42
		]`))
	})
	mux.HandleFunc("/v3/versions/loader/1.20.1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"loader":{"version":"0.26.0-beta.1"}}]`))
	})
	mux.HandleFunc("/net/minecraftforge/forge/maven-metadata.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"1.20.1": ["1.20.1-47.3.0", "1.20.1-47.2.0", 7, ""],
			"1.12.2": ["1.12.2-14.23.5.2859"]
		}`))
	})
	mux.HandleFunc("/api/maven/versions/releases/net/neoforged/neoforge", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"isSnapshot":false,"versions":["20.4.237","21.0.167","21.0.10-beta","21.3.45-beta","21.10.1",null]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fetchers(t *testing.T, srv *httptest.Server) map[string]port.ManifestFetcher {
	t.Helper()
	cfg := &Config{FabricURL: srv.URL, QuiltURL: srv.URL + "/", ForgeURL: srv.URL, NeoForgeURL: srv.URL}
	out := make(map[string]port.ManifestFetcher)
	for _, f := range NewFetchers(srv.Client(), cfg) {
		out[f.Loader()] = f
	}
	return out
}

func TestFetchers_FetchManifest(t *testing.T) {
	srv := newMetaServer(t)
	fs := fetchers(t, srv)

	tests := []struct {
		loader        string
		mc            string
		wantEntries   []string
		wantMalformed int
	}{
		{loader: domain.LoaderFabric, mc: "1.20.1", wantEntries: []string{"0.15.11", "0.14.21"}, wantMalformed: 2},
		{loader: domain.LoaderQuilt, mc: "1.20.1", wantEntries: []string{"0.26.0-beta.1"}},
		{loader: domain.LoaderForge, mc: "1.20.1", wantEntries: []string{"1.20.1-47.3.0", "1.20.1-47.2.0"}, wantMalformed: 2},
		{loader: domain.LoaderForge, mc: "1.7.10"},
		{loader: domain.LoaderNeoForge, mc: "1.21", wantEntries: []string{"21.0.167", "21.0.10-beta"}, wantMalformed: 1},
		{loader: domain.LoaderNeoForge, mc: "1.21.3", wantEntries: []string{"21.3.45-beta"}, wantMalformed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.loader+"@"+tt.mc, func(t *testing.T) {
			m, err := fs[tt.loader].FetchManifest(context.Background(), tt.mc)
			if err != nil {
				t.Fatalf("FetchManifest() error = %v", err)
			}
			if m.Loader != tt.loader || m.MCVersion != tt.mc {
				t.Errorf("manifest header = %s@%s", m.Loader, m.MCVersion)
			}
			if len(m.Entries) != 0 || len(tt.wantEntries) != 0 {
				if !reflect.DeepEqual(m.Entries, tt.wantEntries) {
					t.Errorf("Entries = %v, want %v", m.Entries, tt.wantEntries)
				}
			}
			if len(m.Malformed) != tt.wantMalformed {
				t.Errorf("Malformed = %d, want %d (%v)", len(m.Malformed), tt.wantMalformed, m.Malformed)
			}
		})
	}
}

func TestFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/versions/loader/9.9":
			http.NotFound(w, r)
		case "/v2/versions/loader/broken":
			w.Write([]byte(`{not json`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := fetchers(t, srv)
	fabric := f[domain.LoaderFabric]

	if _, err := fabric.FetchManifest(context.Background(), "9.9"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("404 error = %v, want ErrNotFound", err)
	}
	if _, err := fabric.FetchManifest(context.Background(), "broken"); err == nil {
		t.Error("invalid JSON should error")
	}
	var se *domain.HTTPStatusError
	if _, err := f[domain.LoaderForge].FetchManifest(context.Background(), "1.20.1"); !errors.As(err, &se) || se.StatusCode != 500 {
		t.Errorf("500 error = %v", err)
	}
}

func TestNeoForgePrefix(t *testing.T) {
	tests := []struct {
		mc     string
		want   string
		wantOK bool
	}{
		{mc: "1.21.3", want: "21.3.", wantOK: true},
		{mc: "1.21", want: "21.0.", wantOK: true},
		{mc: "1.20.4", want: "20.4.", wantOK: true},
		{mc: "24w14a"},
		{mc: "2.0.1"},
		{mc: "1."},
	}
	for _, tt := range tests {
		got, ok := NeoForgePrefix(tt.mc)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NeoForgePrefix(%q) = (%q, %v), want (%q, %v)", tt.mc, got, ok, tt.want, tt.wantOK)
		}
	}
}
