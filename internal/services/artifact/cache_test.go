package artifact

import (
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
)

func testConfig() *config.ArtifactConfig {
	return &config.ArtifactConfig{
		TemplateTTL:   5 * time.Minute,
		SignedTxTTL:   90 * time.Second,
		SweepInterval: 10 * time.Second,
	}
}

func templateEntry(platform string) *domain.TradeReadyEntry {
	return &domain.TradeReadyEntry{
		TokenMint:   solana.NewWallet().PublicKey(),
		DexPlatform: platform,
		Target:      &domain.CloningTarget{ProgramID: solana.NewWallet().PublicKey()},
		CreatedAt:   time.Now(),
	}
}

func TestCacheKey(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	key := CacheKey(mint, "pumpfun")
	want := mint.String() + ":pumpfun"
	if key != want {
		t.Errorf("CacheKey = %q, want %q", key, want)
	}
}

func TestClassOf(t *testing.T) {
	if got := classOf(&domain.TradeReadyEntry{Target: &domain.CloningTarget{}}); got != ClassTemplate {
		t.Errorf("template entry classified as %q", got)
	}
	if got := classOf(&domain.TradeReadyEntry{SignedTx: []byte{1, 2, 3}}); got != ClassSignedTx {
		t.Errorf("signed entry classified as %q", got)
	}
}

func TestPutGetInvalidate(t *testing.T) {
	svc := NewService(testConfig())
	entry := templateEntry("pumpfun")
	key := CacheKey(entry.TokenMint, entry.DexPlatform)

	if _, ok := svc.Get(key); ok {
		t.Fatal("get before put should miss")
	}

	svc.Put(key, entry)
	got, ok := svc.Get(key)
	if !ok {
		t.Fatal("get after put should hit")
	}
	if got.DexPlatform != "pumpfun" {
		t.Errorf("platform = %q, want pumpfun", got.DexPlatform)
	}

	if !svc.Invalidate(key) {
		t.Error("invalidate of a present key should report true")
	}
	if _, ok := svc.Get(key); ok {
		t.Error("get after invalidate should miss")
	}
	if svc.Invalidate(key) {
		t.Error("second invalidate should report false")
	}
}

func TestPutIfAbsentFirstWriterWins(t *testing.T) {
	svc := NewService(testConfig())
	first := templateEntry("pumpfun")
	second := templateEntry("raydium-v4")
	key := "shared-key"

	if !svc.PutIfAbsent(key, first) {
		t.Fatal("first PutIfAbsent should store")
	}
	if svc.PutIfAbsent(key, second) {
		t.Fatal("second PutIfAbsent should lose the race")
	}

	got, _ := svc.Get(key)
	if got.DexPlatform != "pumpfun" {
		t.Errorf("platform = %q, want the first writer's entry", got.DexPlatform)
	}
}

func TestListKeysAndSize(t *testing.T) {
	svc := NewService(testConfig())

	for i := 0; i < 5; i++ {
		svc.Put(fmt.Sprintf("key-%d", i), templateEntry("pumpfun"))
	}

	if svc.Size() != 5 {
		t.Errorf("size = %d, want 5", svc.Size())
	}
	keys := svc.ListKeys()
	if len(keys) != 5 {
		t.Errorf("key count = %d, want 5", len(keys))
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for i := 0; i < 5; i++ {
		if !seen[fmt.Sprintf("key-%d", i)] {
			t.Errorf("missing key-%d", i)
		}
	}
}

func TestShardedCacheExpiry(t *testing.T) {
	cache := NewShardedCache()
	now := time.Now()
	entry := templateEntry("pumpfun")

	cache.Set("k", entry, ClassTemplate, now.Add(time.Minute))

	if _, _, ok := cache.Get("k", now); !ok {
		t.Fatal("entry should be live before its deadline")
	}
	if _, _, ok := cache.Get("k", now.Add(2*time.Minute)); ok {
		t.Fatal("entry should be a miss after its deadline")
	}

	// Expired entries don't count, but still occupy memory until swept.
	if n := cache.Len(now.Add(2 * time.Minute)); n != 0 {
		t.Errorf("live count = %d, want 0", n)
	}
	if evicted := cache.Sweep(now.Add(2 * time.Minute)); evicted != 1 {
		t.Errorf("swept = %d, want 1", evicted)
	}
	if evicted := cache.Sweep(now.Add(2 * time.Minute)); evicted != 0 {
		t.Errorf("second sweep evicted %d, want 0", evicted)
	}
}

func TestShardedCacheSetIfAbsentReplacesExpired(t *testing.T) {
	cache := NewShardedCache()
	now := time.Now()

	cache.Set("k", templateEntry("pumpfun"), ClassTemplate, now.Add(time.Minute))

	// Against a live entry the write loses.
	if cache.SetIfAbsent("k", templateEntry("raydium-v4"), ClassTemplate, now.Add(time.Minute), now) {
		t.Fatal("SetIfAbsent should not replace a live entry")
	}

	// Against an expired one it wins.
	later := now.Add(2 * time.Minute)
	if !cache.SetIfAbsent("k", templateEntry("raydium-v4"), ClassTemplate, later.Add(time.Minute), later) {
		t.Fatal("SetIfAbsent should replace an expired entry")
	}
	got, _, ok := cache.Get("k", later)
	if !ok || got.DexPlatform != "raydium-v4" {
		t.Error("expired slot was not replaced")
	}
}

func TestShardedCacheRange(t *testing.T) {
	cache := NewShardedCache()
	now := time.Now()

	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("k-%d", i), templateEntry("pumpfun"), ClassTemplate, now.Add(time.Minute))
	}
	cache.Set("dead", templateEntry("pumpfun"), ClassTemplate, now.Add(-time.Minute))

	visited := 0
	cache.Range(now, func(key string, _ *domain.TradeReadyEntry, class Class) bool {
		if key == "dead" {
			t.Error("range visited an expired entry")
		}
		if class != ClassTemplate {
			t.Errorf("class = %q, want template", class)
		}
		visited++
		return true
	})
	if visited != 10 {
		t.Errorf("visited = %d, want 10", visited)
	}

	// Early stop.
	visited = 0
	cache.Range(now, func(string, *domain.TradeReadyEntry, Class) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("visited = %d after early stop, want 1", visited)
	}
}

func TestTTLClassSelection(t *testing.T) {
	svc := NewService(testConfig())

	if got := svc.ttlFor(ClassTemplate); got != 5*time.Minute {
		t.Errorf("template ttl = %v", got)
	}
	if got := svc.ttlFor(ClassSignedTx); got != 90*time.Second {
		t.Errorf("signed tx ttl = %v", got)
	}
}
