// Package status serves and fetches the hub's follower list over HTTP.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.klb.dev/lanclip/internal/follower"
)

// Path is where the server mounts the status handler.
const Path = "/status"

// Snapshotter is satisfied by *hub.Hub.
type Snapshotter interface {
	Snapshot() []follower.Info
}

// Report is the JSON body of GET /status.
type Report struct {
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Role      string          `json:"role"`
	Followers []follower.Info `json:"followers"`
}

// Handler answers GET requests with a Report built from src.
func Handler(src Snapshotter, source, version, role string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rep := Report{
			Source:    source,
			Version:   version,
			Role:      role,
			Followers: src.Snapshot(),
		}
		if rep.Followers == nil {
			rep.Followers = []follower.Info{}
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			slog.Debug("status response write failed", "addr", r.RemoteAddr, "err", err)
		}
	})
}

// Fetch asks the server at addr (host:port or a full URL) for its Report.
func Fetch(ctx context.Context, client *http.Client, addr string) (*Report, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	url := addr
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/") + Path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status: %s returned %s", url, resp.Status)
	}

	var rep Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("status decode: %w", err)
	}
	return &rep, nil
}
