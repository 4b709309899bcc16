package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"tubequiz/internal/app"
	redisstore "tubequiz/internal/infra/redis"
)

func newTestStore(t *testing.T, ttl time.Duration) (*redisstore.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewSessionStore(client, ttl), mr
}

func TestSessionStorePutSetsLivenessMarker(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)

	store.Put(&app.Session{ID: "s1", VideoID: "dQw4w9WgXcQ"})

	got, err := mr.Get("tubequiz:session:s1")
	if err != nil {
		t.Fatalf("marker not set: %v", err)
	}
	if got != "dQw4w9WgXcQ" {
		t.Fatalf("marker value = %q", got)
	}
	if mr.TTL("tubequiz:session:s1") != time.Minute {
		t.Fatalf("marker ttl = %v", mr.TTL("tubequiz:session:s1"))
	}

	if session, ok := store.Get("s1"); !ok || session.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("get after put: ok=%v", ok)
	}
}

func TestSessionStoreExpiredMarkerEvicts(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)

	store.Put(&app.Session{ID: "s1", VideoID: "dQw4w9WgXcQ"})
	mr.FastForward(2 * time.Minute)

	if _, ok := store.Get("s1"); ok {
		t.Fatalf("session survived marker expiry")
	}
	// the local entry is gone too, not just masked
	mr.Set("tubequiz:session:s1", "dQw4w9WgXcQ")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("evicted session came back")
	}
}

func TestSessionStoreDeleteClearsMarker(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)

	store.Put(&app.Session{ID: "s1", VideoID: "dQw4w9WgXcQ"})
	store.Delete("s1")

	if mr.Exists("tubequiz:session:s1") {
		t.Fatalf("marker survived delete")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("session survived delete")
	}
}

func TestSessionStoreUnknownID(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("unexpected session")
	}
}
