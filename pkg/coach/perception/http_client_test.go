package perception

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

func TestHTTPClient_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/detect" {
			t.Fatalf("path=%q", r.URL.Path)
		}
		var body struct {
			ImageB64 string `json:"image_b64"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		raw, err := base64.StdEncoding.DecodeString(body.ImageB64)
		if err != nil || string(raw) != "jpeg" {
			t.Fatalf("image=%q err=%v", raw, err)
		}
		_, _ = w.Write([]byte(`{"landmarks":[{"id":0,"x":0.5,"y":0.25,"visibility":0.9}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", srv.Client())
	lms, err := c.Detect(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(lms) != 1 || lms[0].X != 0.5 || lms[0].Y != 0.25 {
		t.Fatalf("landmarks=%+v", lms)
	}
}

func TestHTTPClient_DetectNoPose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"landmarks":[]}`))
	}))
	defer srv.Close()

	lms, err := NewHTTPClient(srv.URL, srv.Client()).Detect(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(lms) != 0 {
		t.Fatalf("len=%d, want 0", len(lms))
	}
}

func TestHTTPClient_CompareKeepsJointOrderAndClampsAccuracy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Pose string `json:"pose"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Pose != string(catalog.Dandasana) {
			t.Fatalf("pose=%q", body.Pose)
		}
		_, _ = w.Write([]byte(`{"similar":true,"accuracy":140,"wrong_joints":[
			{"key":"13","joint":"left_elbow","direction":"Increase"},
			{"key":"25","joint":"left_knee","direction":"Decrease"},
			{"key":"26","joint":"right_knee","direction":"Decrease"}]}`))
	}))
	defer srv.Close()

	v, err := NewHTTPClient(srv.URL, srv.Client()).Compare(context.Background(), Landmarks{{ID: 1}}, catalog.Dandasana)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !v.Similar || v.Accuracy != 100 {
		t.Fatalf("verdict=%+v", v)
	}
	if len(v.WrongJoints) != 3 || v.WrongJoints[0].Joint != "left_elbow" || v.WrongJoints[2].Key != "26" {
		t.Fatalf("wrong joints=%+v", v.WrongJoints)
	}
}

func TestHTTPClient_ErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, srv.Client()).Detect(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("err=%v", err)
	}
}

func TestHTTPClient_RejectsEmptyInput(t *testing.T) {
	c := NewHTTPClient("", nil)
	if _, err := c.Detect(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image")
	}
	if _, err := c.Compare(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty pose")
	}
}
