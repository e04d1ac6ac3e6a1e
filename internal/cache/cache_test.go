package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/relmark/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("relmark:1|pattern", []byte("She swam to Paris."))
	b := Key("relmark:1|pattern", []byte("She swam to Paris."))
	if a != b {
		t.Fatalf("key not stable: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "relmark:v1:") || len(a) != len("relmark:v1:")+64 {
		t.Errorf("unexpected key shape %q", a)
	}
	if Key("relmark:2|pattern", []byte("She swam to Paris.")) == a {
		t.Error("fingerprint change must change the key")
	}
	if Key("relmark:1|pattern", []byte("She swam to Rome.")) == a {
		t.Error("input change must change the key")
	}
	// fingerprint and input are separated so the boundary cannot shift
	if Key("ab", []byte("c")) == Key("a", []byte("bc")) {
		t.Error("ambiguous key boundary")
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	value := []byte("payload")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatal(err)
	}
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "payload" {
		t.Fatalf("got %q, %v", got, ok)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("fp", []byte("input"))

	if err := c.Set(key, []byte(`{"discriminator":"x"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != `{"discriminator":"x"}` {
		t.Fatalf("got %q, %v", got, ok)
	}

	if _, err := os.Stat(c.path(key)); err != nil {
		t.Errorf("entry file missing: %v", err)
	}
	if filepath.Base(filepath.Dir(c.path(key))) != key[len("relmark:v1:"):len("relmark:v1:")+2] {
		t.Errorf("entry not sharded: %s", c.path(key))
	}

	if err := c.Delete(key); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestDiskCache_ExpiredAndPrune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set("relmark:v1:aaaa", []byte("old"), time.Minute)
	_ = c.Set("relmark:v1:bbbb", []byte("fresh"), 2*time.Hour)

	now = now.Add(time.Hour)

	n, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
	if _, ok := c.Get("relmark:v1:aaaa"); ok {
		t.Error("expired entry still readable")
	}
	if _, ok := c.Get("relmark:v1:bbbb"); !ok {
		t.Error("fresh entry was removed")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := "relmark:v1:cccc"
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("corrupt entry should miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("relmark:v1:dddd", []byte("from disk"), 0); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get("relmark:v1:dddd")
	if !ok || string(got) != "from disk" {
		t.Fatalf("got %q, %v", got, ok)
	}

	mem := c.memory.(*MemoryCache)
	if mem.Len() != 1 {
		t.Errorf("expected promotion to memory, len=%d", mem.Len())
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("relmark:v1:dddd"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew_Disabled(t *testing.T) {
	c := New(model.CacheConfig{Enabled: false})
	_ = c.Set("k", []byte("v"), 0)
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache must not hit")
	}

	cfg := model.DefaultConfig().Cache
	cfg.Enabled = true
	cfg.Dir = t.TempDir()
	if _, ok := New(cfg).(*LayeredCache); !ok {
		t.Error("enabled cache should be layered")
	}
}
