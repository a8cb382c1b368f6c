package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"backend-recordpath/internal/auth"
	"backend-recordpath/internal/config"
	"backend-recordpath/internal/location"
	"backend-recordpath/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
)

type fakeObjects struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeObjects) BucketExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeObjects) MakeBucket(context.Context, string, minio.MakeBucketOptions) error { return nil }

func (f *fakeObjects) PutObject(_ context.Context, _, object string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	n, _ := io.Copy(io.Discard, r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, object)
	return minio.UploadInfo{Key: object, Size: n}, nil
}

func (f *fakeObjects) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func testToken(t *testing.T, secret, deviceID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func request(t *testing.T, s *Server, method, path, token, body string) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestHealthRoute(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil)
	defer s.Close(context.Background())

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestRoutesRequireToken(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret"}, nil, nil)
	defer s.Close(context.Background())

	if code := request(t, s, http.MethodGet, "/tracking/snapshot", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := request(t, s, http.MethodGet, "/tracking/snapshot", testToken(t, "other", "d1"), ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", code)
	}
	if code := request(t, s, http.MethodGet, "/tracking/snapshot", testToken(t, "secret", "d1"), ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := request(t, s, http.MethodPost, "/auth/login", "", `{}`); code != http.StatusNotFound {
		t.Fatalf("enrollment needs postgres, got %d", code)
	}
}

func TestStoppedJourneyIsArchived(t *testing.T) {
	objects := &fakeObjects{}
	old := newMinioFn
	newMinioFn = func(config.Config) (storage.ObjectStore, error) { return objects, nil }
	defer func() { newMinioFn = old }()

	cfg := config.Config{JWTSecret: "secret", MinioBucket: "journeys"}
	s := NewServer(cfg, nil, nil)
	defer s.Close(context.Background())
	token := testToken(t, cfg.JWTSecret, "d1")

	if code := request(t, s, http.MethodPut, "/tracking/permission", token, `{"status":"authorized"}`); code != http.StatusAccepted {
		t.Fatalf("permission: %d", code)
	}
	session, ok := s.Registry.Lookup("d1")
	if !ok {
		t.Fatalf("expected session for d1")
	}
	waitFor(t, func() bool { return session.Engine.Permission() == location.PermissionAuthorized })

	if code := request(t, s, http.MethodPost, "/tracking/start", token, ""); code != http.StatusCreated {
		t.Fatalf("start: %d", code)
	}
	id, _ := session.Engine.OpenJourneyID()
	if code := request(t, s, http.MethodPatch, "/journeys/"+id, token, `{"notes":"clear skies"}`); code != http.StatusOK {
		t.Fatalf("annotate: %d", code)
	}
	if code := request(t, s, http.MethodPost, "/tracking/stop", token, ""); code != http.StatusOK {
		t.Fatalf("stop: %d", code)
	}

	waitFor(t, func() bool { return len(objects.uploaded()) == 1 })
	if key := objects.uploaded()[0]; len(key) < len("journeys/") || key[:len("journeys/")] != "journeys/" {
		t.Fatalf("unexpected object key %q", key)
	}
}

func TestCloseFinalizesOpenJourneys(t *testing.T) {
	objects := &fakeObjects{}
	old := newMinioFn
	newMinioFn = func(config.Config) (storage.ObjectStore, error) { return objects, nil }
	defer func() { newMinioFn = old }()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := config.Config{JWTSecret: "secret", MinioBucket: "journeys"}
	s := NewServer(cfg, nil, rdb)
	token := testToken(t, cfg.JWTSecret, "d1")

	request(t, s, http.MethodPut, "/tracking/permission", token, `{"status":"authorized"}`)
	session, _ := s.Registry.Lookup("d1")
	waitFor(t, func() bool { return session.Engine.Permission() == location.PermissionAuthorized })
	if code := request(t, s, http.MethodPost, "/tracking/start", token, ""); code != http.StatusCreated {
		t.Fatalf("start: %d", code)
	}

	s.Close(context.Background())
	if got := objects.uploaded(); len(got) != 1 {
		t.Fatalf("expected the open journey to be archived on close, got %v", got)
	}
}
