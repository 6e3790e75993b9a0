package lightdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// DefaultRemoteURL is the NeewerLite community lights database.
const DefaultRemoteURL = "https://raw.githubusercontent.com/keefo/NeewerLite/main/Database/lights.json"

// DefaultRefreshInterval is how long a fetched database stays fresh.
const DefaultRefreshInterval = 8 * time.Hour

// profileCacheSize bounds the resolved-profile cache. A handful of lights
// per installation is typical.
const profileCacheSize = 64

// Fetcher retrieves the remote lights database.
type Fetcher interface {
	Fetch(ctx context.Context) (*LightsFile, error)
}

// Options configures a Database.
type Options struct {
	Fetcher         Fetcher       // remote source; nil disables remote refresh
	CachePath       string        // on-disk cache file; empty disables disk cache
	RefreshInterval time.Duration // staleness threshold, default 8h
	Now             func() time.Time
}

// Database resolves advertised device names to capability profiles, keeping
// the lights list fresh from the remote source with disk and built-in
// fallbacks. Construct one per process and pass it by handle; there is no
// hidden global.
type Database struct {
	fetcher   Fetcher
	cachePath string
	ttl       time.Duration
	now       func() time.Time

	mu          sync.Mutex
	file        *LightsFile
	lastRefresh time.Time

	profiles gcache.Cache
	sf       singleflight.Group
}

// New creates a Database. Zero-value Options yield a database that serves
// the built-in table only.
func New(opts Options) *Database {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Database{
		fetcher:   opts.Fetcher,
		cachePath: opts.CachePath,
		ttl:       opts.RefreshInterval,
		now:       opts.Now,
		profiles:  gcache.New(profileCacheSize).LRU().Build(),
	}
}

// Resolve returns the capability profile for an advertised device name,
// with Model and NickName filled in. Returns ErrUnknownModel when the name
// does not map to a known light type.
func (d *Database) Resolve(ctx context.Context, deviceName, identifier string) (Capabilities, error) {
	key := deviceName + "|" + identifier
	if v, err := d.profiles.Get(key); err == nil {
		return v.(Capabilities), nil
	}

	caps, err := d.resolveUncached(ctx, deviceName, identifier)
	if err != nil {
		return Capabilities{}, err
	}
	_ = d.profiles.SetWithExpire(key, caps, d.ttl)
	return caps, nil
}

func (d *Database) resolveUncached(ctx context.Context, deviceName, identifier string) (Capabilities, error) {
	file, err := d.ensureLoaded(ctx)
	if err != nil {
		return Capabilities{}, err
	}

	project := ParseProjectName(deviceName)
	typeID, ok := LightTypeFor(project)
	if !ok {
		return Capabilities{}, fmt.Errorf("%w: %q", ErrUnknownModel, deviceName)
	}

	for _, light := range file.Lights {
		if light.Type == typeID {
			caps := light
			caps.Model = project
			caps.NickName = NickName(project, identifier)
			return caps, nil
		}
	}
	return Capabilities{}, fmt.Errorf("%w: no profile for type %d (%q)", ErrUnknownModel, typeID, deviceName)
}

// ensureLoaded returns the current lights file, refreshing it when stale.
// Concurrent callers share one refresh.
func (d *Database) ensureLoaded(ctx context.Context) (*LightsFile, error) {
	d.mu.Lock()
	fresh := d.file != nil && d.now().Sub(d.lastRefresh) <= d.ttl
	file := d.file
	d.mu.Unlock()
	if fresh {
		return file, nil
	}

	v, err, _ := d.sf.Do("refresh", func() (any, error) {
		return d.refresh(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	if f := v.(*LightsFile); f != nil {
		return f, nil
	}
	return nil, ErrNoDatabase
}

// refresh walks the source chain: remote fetch, then disk cache, then the
// built-in table. Returns nil only if every source fails, which cannot
// happen while the built-in table exists.
func (d *Database) refresh(ctx context.Context) *LightsFile {
	if d.fetcher != nil {
		file, err := d.fetcher.Fetch(ctx)
		switch {
		case err != nil:
			slog.Warn("[lightdb] remote fetch failed", "error", err)
		case !file.Valid():
			slog.Warn("[lightdb] remote database failed validation")
		default:
			d.setFile(file)
			d.saveCacheFile(file)
			slog.Info("[lightdb] database refreshed from remote", "lights", len(file.Lights))
			return file
		}
	}

	if file := d.loadCacheFile(); file != nil {
		d.setFile(file)
		slog.Info("[lightdb] using cached database", "lights", len(file.Lights))
		return file
	}

	file := builtinDatabase()
	d.setFile(file)
	slog.Info("[lightdb] using built-in database", "lights", len(file.Lights))
	return file
}

func (d *Database) setFile(file *LightsFile) {
	d.mu.Lock()
	d.file = file
	d.lastRefresh = d.now()
	d.mu.Unlock()
}

// cacheEnvelope is the disk cache format: the database plus when it was
// fetched.
type cacheEnvelope struct {
	Database    *LightsFile `json:"database"`
	LastRefresh int64       `json:"last_refresh"`
}

func (d *Database) saveCacheFile(file *LightsFile) {
	if d.cachePath == "" {
		return
	}
	data, err := json.Marshal(cacheEnvelope{Database: file, LastRefresh: d.now().Unix()})
	if err != nil {
		slog.Warn("[lightdb] encode cache", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.cachePath), 0o755); err != nil {
		slog.Warn("[lightdb] create cache dir", "error", err)
		return
	}
	if err := os.WriteFile(d.cachePath, data, 0o644); err != nil {
		slog.Warn("[lightdb] write cache", "error", err)
	}
}

func (d *Database) loadCacheFile() *LightsFile {
	if d.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(d.cachePath)
	if err != nil {
		return nil
	}
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("[lightdb] decode cache", "error", err)
		return nil
	}
	if !env.Database.Valid() {
		slog.Warn("[lightdb] cached database failed validation")
		return nil
	}
	return env.Database
}
