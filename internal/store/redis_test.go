package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(WithDSN("redis://" + mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, newTestRedisStore(t))
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(WithDSN("redis://" + mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer s.Close()

	if err := s.SaveSession(testSession("sess-prefix")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if !mr.Exists(redisSessionKeyPrefix + "sess-prefix") {
		t.Errorf("expected key %q in redis", redisSessionKeyPrefix+"sess-prefix")
	}
}

func TestRedisStoreInvalidDSN(t *testing.T) {
	if _, err := NewRedisStore(WithDSN("not-a-url")); err == nil {
		t.Fatal("NewRedisStore with invalid DSN should fail")
	}
	if _, err := NewRedisStore(); err == nil {
		t.Fatal("NewRedisStore without DSN should fail")
	}
}
