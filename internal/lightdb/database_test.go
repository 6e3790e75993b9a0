package lightdb

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeFetcher serves a canned database or a canned error, counting calls.
type fakeFetcher struct {
	file  *LightsFile
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context) (*LightsFile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}

// fakeClock is an injectable clock the tests can advance.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func remoteFile() *LightsFile {
	return &LightsFile{
		Version: 2,
		Lights: []Capabilities{
			{
				Type:                 25,
				SupportRGB:           true,
				CCTRange:             &CCTRange{Min: 27, Max: 65},
				SupportCCTGM:         true,
				Support17FX:          true,
				NewPowerLightCommand: true,
				NewRGBLightCommand:   true,
			},
		},
	}
}

func TestResolveFromRemote(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	fetcher := &fakeFetcher{file: remoteFile()}
	db := New(Options{Fetcher: fetcher, Now: clock.now})

	caps, err := db.Resolve(context.Background(), "NW-20220018&FFFFFFFF", "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if caps.Model != "MS60C" {
		t.Errorf("Model = %q, want MS60C", caps.Model)
	}
	if caps.NickName != "MS60C-EEFF" {
		t.Errorf("NickName = %q, want MS60C-EEFF", caps.NickName)
	}
	if !caps.Support17FX || !caps.SupportCCTGM {
		t.Errorf("capability flags not carried through: %+v", caps)
	}
}

func TestResolveCachesProfiles(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	fetcher := &fakeFetcher{file: remoteFile()}
	db := New(Options{Fetcher: fetcher, Now: clock.now})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := db.Resolve(ctx, "MS60C", "AA:BB:CC:DD:EE:FF"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

func TestRefreshAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	fetcher := &fakeFetcher{file: remoteFile()}
	db := New(Options{Fetcher: fetcher, Now: clock.now, RefreshInterval: time.Hour})

	ctx := context.Background()
	if _, err := db.Resolve(ctx, "MS60C", "a1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	clock.advance(2 * time.Hour)
	// New device name so the profile cache does not short-circuit.
	if _, err := db.Resolve(ctx, "TL60", "a2"); err == nil {
		// TL60 is not in the canned remote file.
		t.Fatal("Resolve(TL60) should fail against the canned file")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher calls = %d, want 2 (refresh after TTL)", fetcher.calls)
	}
}

func TestFallbackToDiskCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "lights.json")
	data, _ := json.Marshal(cacheEnvelope{Database: remoteFile(), LastRefresh: 1})
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{err: errors.New("network down")}
	db := New(Options{Fetcher: fetcher, CachePath: cachePath})

	caps, err := db.Resolve(context.Background(), "MS60C", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if caps.Type != 25 {
		t.Errorf("Type = %d, want 25 from disk cache", caps.Type)
	}
}

func TestFallbackToBuiltin(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("network down")}
	db := New(Options{Fetcher: fetcher})

	caps, err := db.Resolve(context.Background(), "NWR-TL60", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if caps.Type != 32 || !caps.Support17FX {
		t.Errorf("built-in TL60 profile = %+v", caps)
	}
}

func TestRemoteValidationRejectsMalformed(t *testing.T) {
	// A lights entry without a type id fails validation: the built-in
	// table must be served instead.
	bad := &LightsFile{Version: 2, Lights: []Capabilities{{SupportRGB: true}}}
	db := New(Options{Fetcher: &fakeFetcher{file: bad}})

	caps, err := db.Resolve(context.Background(), "MS60C", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !caps.NewPowerLightCommand {
		t.Errorf("expected built-in MS60C profile, got %+v", caps)
	}
}

func TestResolveUnknownModel(t *testing.T) {
	db := New(Options{})
	_, err := db.Resolve(context.Background(), "mystery gadget", "")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Resolve() error = %v, want ErrUnknownModel", err)
	}
}

func TestSaveAndReloadDiskCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "sub", "lights.json")
	fetcher := &fakeFetcher{file: remoteFile()}
	db := New(Options{Fetcher: fetcher, CachePath: cachePath})

	if _, err := db.Resolve(context.Background(), "MS60C", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Second database, fetcher broken: must come up from the file the
	// first one wrote.
	db2 := New(Options{Fetcher: &fakeFetcher{err: errors.New("offline")}, CachePath: cachePath})
	caps, err := db2.Resolve(context.Background(), "MS60C", "")
	if err != nil {
		t.Fatalf("Resolve() from disk cache error = %v", err)
	}
	if caps.Type != 25 {
		t.Errorf("Type = %d, want 25", caps.Type)
	}
}

func TestBuiltinDatabaseIsValid(t *testing.T) {
	file := builtinDatabase()
	if !file.Valid() {
		t.Fatal("built-in database fails its own validation")
	}
	// Every type id the name table can produce must have a profile.
	have := map[int]bool{}
	for _, l := range file.Lights {
		have[l.Type] = true
	}
	for _, r := range typeRules {
		if !have[r.id] {
			t.Errorf("no built-in profile for type %d (%q)", r.id, r.keyword)
		}
	}
}
