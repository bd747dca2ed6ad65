package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nkoval/form-autofill/internal/observability/logging"
	"github.com/nkoval/form-autofill/internal/uploader"
)

func main() {
	var (
		filePath = flag.String("file", "", "path to the PDF to upload")
		apiURL   = flag.String("api", "http://localhost:8080", "base URL of the autofill API")
		wait     = flag.Duration("wait", 0, "poll the session until suggestions arrive, 0 disables")
	)
	flag.Parse()

	logger := logging.NewJSONLogger("uploadctl", "info")
	slog.SetDefault(logger)

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: uploadctl -file document.pdf [-api URL] [-wait 60s]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read_file_failed", "file", *filePath, "error", err)
		os.Exit(1)
	}

	coordinator := uploader.New(uploader.Options{BaseURL: *apiURL, Logger: logger})
	uploadID, err := coordinator.Upload(ctx, *filePath, content)
	if err != nil {
		logger.Error("upload_failed", "file", *filePath, "error", err)
		os.Exit(1)
	}
	fmt.Println(uploadID)

	if *wait <= 0 {
		return
	}
	if err := waitForSuggestions(ctx, *apiURL, uploadID, *wait); err != nil {
		logger.Error("wait_failed", "upload_id", uploadID, "error", err)
		os.Exit(1)
	}
}

// waitForSuggestions polls the session view and prints each status change
// until the workflow reaches its terminal state or the deadline passes.
func waitForSuggestions(ctx context.Context, apiURL, uploadID string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var lastStatus string
	for {
		view, err := fetchSession(ctx, apiURL, uploadID)
		if err != nil {
			return err
		}
		if view.StatusLine != lastStatus {
			fmt.Fprintln(os.Stderr, view.StatusLine)
			lastStatus = view.StatusLine
		}
		if view.State == "suggestions_received" {
			return json.NewEncoder(os.Stdout).Encode(view.Suggestions)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("suggestions did not arrive in %s", timeout)
		case <-ticker.C:
		}
	}
}

type sessionView struct {
	State       string          `json:"state"`
	StatusLine  string          `json:"statusLine"`
	Suggestions json.RawMessage `json:"suggestions"`
}

func fetchSession(ctx context.Context, apiURL, uploadID string) (*sessionView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/uploads/%s", apiURL, uploadID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session lookup failed: %s", resp.Status)
	}
	var view sessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode session view: %w", err)
	}
	return &view, nil
}
