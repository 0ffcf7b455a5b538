package assets

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/packrat-app/packrat/internal/models"
)

// captureOutput helps capture stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

// setupSession points the CLI at srv with a stored token so requireSession
// succeeds. The fake server must answer GET /auth/me.
func setupSession(t *testing.T, srv *httptest.Server) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("PACKRAT_API_URL", srv.URL)

	tokenDir := filepath.Join(dir, "packrat")
	if err := os.MkdirAll(tokenDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tokenDir, "token"), []byte("test-token"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
}

func meHandler(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(models.User{ID: "u1", Email: "alice@example.com"})
}

func TestListAssets_TableOutput(t *testing.T) {
	assets := []models.Asset{
		{ID: "a1", Name: "Camera", Description: "DSLR", Location: "Shelf", Attachments: []string{"file:///p/1.jpg"}, CreatedAt: time.Now()},
		{ID: "a2", Name: "Tripod", Description: "Carbon", CreatedAt: time.Now()},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		case "/assets":
			_ = json.NewEncoder(w).Encode(assets)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := listAssetsCmd()
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("list: %v", err)
		}
	})

	if !strings.Contains(out, "Camera") || !strings.Contains(out, "Tripod") {
		t.Fatalf("expected asset names in output, got: %s", out)
	}
	// Missing location renders as N/A.
	if !strings.Contains(out, "N/A") {
		t.Fatalf("expected N/A for empty location, got: %s", out)
	}
}

func TestListAssets_EmptyState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		case "/assets":
			_, _ = w.Write([]byte("[]"))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := listAssetsCmd()
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("list: %v", err)
		}
	})

	if !strings.Contains(out, "No assets found") {
		t.Fatalf("expected empty state, got: %s", out)
	}
}

func TestListAssets_NotLoggedIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("PACKRAT_API_URL", srv.URL)

	cmd := listAssetsCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("expected login-required error, got: %v", err)
	}
}

func TestShowAsset_Detail(t *testing.T) {
	asset := models.Asset{
		ID: "a1", Name: "Camera", Description: "DSLR",
		Attachments: []string{"file:///p/1.jpg", "file:///p/2.jpg"},
		CreatedAt:   time.Now(),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		case "/assets/a1":
			_ = json.NewEncoder(w).Encode(asset)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := showAssetCmd()
	cmd.SetArgs([]string{"a1"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("show: %v", err)
		}
	})

	if !strings.Contains(out, "Camera") || !strings.Contains(out, "Attachments (2)") {
		t.Fatalf("unexpected detail output: %s", out)
	}
	if !strings.Contains(out, "Location:    N/A") {
		t.Fatalf("expected N/A location, got: %s", out)
	}
}

func TestShowAsset_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "asset not found"})
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := showAssetCmd()
	cmd.SetArgs([]string{"ghost"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("show: %v", err)
		}
	})

	if !strings.Contains(out, "Asset not found") {
		t.Fatalf("expected not-found message, got: %s", out)
	}
}

func TestCreateAsset_ValidationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		case "/assets":
			t.Error("create must not reach the server on validation failure")
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := createAssetCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"--name", "   ", "--description", "DSLR"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for blank name")
		}
	})

	if !strings.Contains(out, "Name is required") {
		t.Fatalf("expected field message, got: %s", out)
	}
}

func TestCreateAsset_Success(t *testing.T) {
	var created models.AssetFields

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			meHandler(w)
		case "/assets":
			_ = json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(models.Asset{ID: "new-id", Name: *created.Name, CreatedAt: time.Now()})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := createAssetCmd()
	cmd.SetArgs([]string{"--name", "  Camera  ", "--description", "DSLR", "--attach", "https://example.com/p.jpg"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("create: %v", err)
		}
	})

	if !strings.Contains(out, "Asset created: new-id") {
		t.Fatalf("unexpected output: %s", out)
	}
	if created.Name == nil || *created.Name != "Camera" {
		t.Errorf("expected trimmed name sent to the server, got %+v", created.Name)
	}
	if len(created.Attachments) != 1 || created.Attachments[0] != "https://example.com/p.jpg" {
		t.Errorf("unexpected attachments: %+v", created.Attachments)
	}
}

func TestEditAsset_NothingToSave(t *testing.T) {
	asset := models.Asset{ID: "a1", Name: "Camera", Description: "DSLR", CreatedAt: time.Now()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/me":
			meHandler(w)
		case r.URL.Path == "/assets/a1" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(asset)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := editAssetCmd()
	cmd.SetArgs([]string{"a1"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("edit: %v", err)
		}
	})

	if !strings.Contains(out, "Nothing to save.") {
		t.Fatalf("expected no-op message, got: %s", out)
	}
}

func TestEditAsset_RemoveAttachments(t *testing.T) {
	asset := models.Asset{
		ID: "a1", Name: "Camera", Description: "DSLR",
		Attachments: []string{"file:///p/a.jpg", "file:///p/b.jpg", "file:///p/c.jpg"},
		CreatedAt:   time.Now(),
	}
	var patched models.AssetFields

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/me":
			meHandler(w)
		case r.URL.Path == "/assets/a1" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(asset)
		case r.URL.Path == "/assets/a1" && r.Method == http.MethodPatch:
			_ = json.NewDecoder(r.Body).Decode(&patched)
			updated := asset
			updated.Attachments = patched.Attachments
			_ = json.NewEncoder(w).Encode(updated)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := editAssetCmd()
	// Indexes given low-to-high; removal must still apply high-to-low so
	// the earlier removal does not shift the later one.
	cmd.SetArgs([]string{"a1", "--remove-attachment", "0", "--remove-attachment", "2"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("edit: %v", err)
		}
	})

	if !strings.Contains(out, "Asset updated") {
		t.Fatalf("unexpected output: %s", out)
	}
	if len(patched.Attachments) != 1 || patched.Attachments[0] != "file:///p/b.jpg" {
		t.Errorf("unexpected attachments sent: %+v", patched.Attachments)
	}
}

func TestDeleteAsset_WithYes(t *testing.T) {
	deleted := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/me":
			meHandler(w)
		case r.URL.Path == "/assets/a1" && r.Method == http.MethodDelete:
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()
	setupSession(t, srv)

	cmd := deleteAssetCmd()
	cmd.SetArgs([]string{"a1", "--yes"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("delete: %v", err)
		}
	})

	if !deleted {
		t.Error("expected DELETE request")
	}
	if !strings.Contains(out, "Asset deleted") {
		t.Fatalf("unexpected output: %s", out)
	}
}
