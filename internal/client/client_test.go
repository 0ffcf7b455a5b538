package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/packrat-app/packrat/internal/models"
)

func TestClient_GetAsset_AbsentIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "asset not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")

	asset, err := c.GetAsset(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if asset != nil {
		t.Errorf("expected nil for absent asset, got %+v", asset)
	}
}

func TestClient_Unauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListAssets(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestClient_ValidationErrorCarriesFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "validation failed",
			"fields": map[string]string{"name": "Name is required"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	name := ""
	_, err := c.CreateAsset(context.Background(), models.AssetFields{Name: &name})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Fields["name"] != "Name is required" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("secret-token")
	if _, err := c.ListAssets(context.Background()); err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "alice@example.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "tok",
			"user":  map[string]string{"id": "u1", "email": "alice@example.com"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	token, user, err := c.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok" || user == nil || user.ID != "u1" {
		t.Errorf("unexpected login result: token=%q user=%+v", token, user)
	}
	if c.Token != "" {
		t.Error("Login must not install the token on the client")
	}
}

func TestClient_DeleteAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.DeleteAsset(context.Background(), "a1"); err != nil {
		t.Errorf("DeleteAsset: %v", err)
	}
}
