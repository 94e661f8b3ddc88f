package stores

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/careauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newAccountStoreTest(t *testing.T) (*AccountStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewAccountStore(rdb, ""), mr
}

func testRecord() *AccountRecord {
	return &AccountRecord{
		ID:           "6a1f0c9e-3f7b-4a53-9d2e-1c5b7e8f9a01",
		Email:        "nurse@example.com",
		FirstName:    "Nia",
		LastName:     "Reyes",
		Role:         "nurse",
		PasswordHash: password.Legacy("deadbeef"),
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestAccountStoreSaveWritesBothKeys(t *testing.T) {
	store, mr := newAccountStoreTest(t)
	ctx := context.Background()
	rec := testRecord()

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	byEmail, err := mr.Get("user:nurse@example.com")
	if err != nil {
		t.Fatalf("email key missing: %v", err)
	}
	byID, err := mr.Get("user:id:" + rec.ID)
	if err != nil {
		t.Fatalf("id key missing: %v", err)
	}
	if byEmail != byID {
		t.Fatal("both keys must hold the same record")
	}
	if ttl := mr.TTL("user:nurse@example.com"); ttl != 0 {
		t.Fatalf("records must not expire, ttl=%v", ttl)
	}

	got, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != rec.Email || got.PasswordHash.Kind() != password.KindLegacy {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestAccountStoreRecordJSONShape(t *testing.T) {
	store, mr := newAccountStoreTest(t)
	rec := testRecord()
	rec.PasswordHash = password.Stored{}

	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := mr.Get("user:" + rec.Email)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := fields["passwordHash"]; ok {
		t.Fatal("OAuth-only records must not carry passwordHash")
	}
	for _, key := range []string{"lastLogin", "lockedUntil"} {
		if string(fields[key]) != "null" {
			t.Fatalf("%s must serialize as null, got %s", key, fields[key])
		}
	}
	if string(fields["loginAttempts"]) != "0" {
		t.Fatalf("loginAttempts = %s", fields["loginAttempts"])
	}
}

func TestAccountStoreNotFound(t *testing.T) {
	store, _ := newAccountStoreTest(t)
	ctx := context.Background()

	if _, err := store.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	ok, err := store.Exists(ctx, "missing@example.com")
	if err != nil || ok {
		t.Fatalf("expected missing account, ok=%v err=%v", ok, err)
	}
}

func TestAccountStoreExists(t *testing.T) {
	store, _ := newAccountStoreTest(t)
	ctx := context.Background()
	if err := store.Save(ctx, testRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := store.Exists(ctx, "nurse@example.com")
	if err != nil || !ok {
		t.Fatalf("expected existing account, ok=%v err=%v", ok, err)
	}
}

func TestAccountStoreCorruptRecord(t *testing.T) {
	store, mr := newAccountStoreTest(t)
	if err := mr.Set("user:bad@example.com", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.GetByEmail(context.Background(), "bad@example.com"); !errors.Is(err, ErrAccountCorrupt) {
		t.Fatalf("expected ErrAccountCorrupt, got %v", err)
	}
	if err := store.Save(context.Background(), &AccountRecord{Email: "x@example.com"}); !errors.Is(err, ErrAccountCorrupt) {
		t.Fatalf("expected id-less record to be rejected, got %v", err)
	}
}

func TestAccountStoreUnavailable(t *testing.T) {
	store, mr := newAccountStoreTest(t)
	mr.Close()

	_, err := store.GetByEmail(context.Background(), "nurse@example.com")
	if !errors.Is(err, ErrAccountStoreUnavailable) {
		t.Fatalf("expected ErrAccountStoreUnavailable, got %v", err)
	}
	if strings.Contains(err.Error(), "passwordHash") {
		t.Fatal("error must not leak record content")
	}
	if err := store.Save(context.Background(), testRecord()); !errors.Is(err, ErrAccountStoreUnavailable) {
		t.Fatalf("expected save failure, got %v", err)
	}
}

func TestAccountStorePrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewAccountStore(rdb, "care")
	rec := testRecord()
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("care:" + rec.Email) || !mr.Exists("care:id:"+rec.ID) {
		t.Fatalf("expected prefixed keys, have %v", mr.Keys())
	}
}

func TestAccountRecordLocked(t *testing.T) {
	now := time.Now()
	rec := testRecord()
	if rec.Locked(now) {
		t.Fatal("nil lockedUntil must not lock")
	}
	future := now.Add(time.Minute)
	rec.LockedUntil = &future
	if !rec.Locked(now) {
		t.Fatal("future lockedUntil must lock")
	}
	past := now.Add(-time.Minute)
	rec.LockedUntil = &past
	if rec.Locked(now) {
		t.Fatal("elapsed lock must not lock")
	}
}
