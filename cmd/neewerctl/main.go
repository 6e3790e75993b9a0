package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/neewerctl/internal/ble"
	"github.com/chaz8081/neewerctl/internal/config"
	"github.com/chaz8081/neewerctl/internal/device"
	"github.com/chaz8081/neewerctl/internal/lightdb"
	"github.com/chaz8081/neewerctl/internal/protocol"
	"github.com/chaz8081/neewerctl/internal/scene"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/neewerctl/config.yaml)")
	scan := flag.Bool("scan", false, "scan for Neewer lights and exit")
	scanTime := flag.Duration("scan-time", 10*time.Second, "how long to scan")
	name := flag.String("name", "", "target light by advertised name (from config if omitted)")
	address := flag.String("address", "", "target light by transport address")
	power := flag.String("power", "", "switch the light on or off")
	brightness := flag.Int("brightness", -1, "brightness 0..100")
	cct := flag.Int("cct", 0, "color temperature in Kelvin (2700..6500)")
	gm := flag.Int("gm", 0, "green/magenta tint -50..+50 (with -cct)")
	hsi := flag.String("hsi", "", "color as hue,saturation[,brightness] (e.g. 120,80,50)")
	effect := flag.String("effect", "", "scene effect as id[,key=value...] (e.g. 4,speed=7,sparks=3)")
	watch := flag.Bool("watch", false, "stay connected and print device notifications")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	adapter := ble.NewNativeAdapter()
	if err := adapter.Enable(); err != nil {
		log.Fatalf("enable BLE adapter: %v", err)
	}

	if *scan {
		runScan(adapter, *scanTime)
		return
	}

	target, err := pickTarget(cfg, *name, *address)
	if err != nil {
		log.Fatalf("%v", err)
	}

	db := lightdb.New(lightdb.Options{
		Fetcher:         lightdb.NewHTTPFetcher(cfg.Database.URL),
		CachePath:       cfg.Database.CachePath,
		RefreshInterval: time.Duration(cfg.Database.RefreshInterval) * time.Second,
	})
	caps, err := db.Resolve(context.Background(), target.Name, target.Address)
	if err != nil {
		log.Fatalf("resolve capabilities for %q: %v", target.Name, err)
	}
	slog.Info("capability profile resolved", "model", caps.Model, "rgb", caps.SupportRGB, "17fx", caps.Support17FX)

	session := device.NewSession(adapter, target.Address, target.Name, caps, device.SessionOptions{
		Resolver: resolverFor(target),
	})
	coord := device.NewCoordinator(session, cfg.Reconnect.MaxBackoff)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = coord.Start(ctx)
	cancel()
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer coord.Stop()

	if err := runCommands(session, *power, *brightness, *cct, *gm, *hsi, *effect); err != nil {
		log.Fatalf("%v", err)
	}

	if *watch {
		runWatch(session)
	}
}

// runCommands applies each requested setting in a stable order.
func runCommands(s *device.Session, power string, brightness, cct, gm int, hsi, effect string) error {
	if power != "" {
		on, err := parseOnOff(power)
		if err != nil {
			return err
		}
		if err := s.SetPower(on); err != nil {
			return fmt.Errorf("set power: %w", err)
		}
		log.Printf("Power %s", power)
	}

	if cct != 0 {
		if err := s.SetCCT(cct, brightness, gm); err != nil {
			return fmt.Errorf("set cct: %w", err)
		}
		log.Printf("CCT %dK (device units %d)", cct, s.CCT())
	}

	if hsi != "" {
		h, sat, brr, err := parseHSI(hsi, brightness)
		if err != nil {
			return err
		}
		if err := s.SetHSI(h, sat, brr); err != nil {
			return fmt.Errorf("set hsi: %w", err)
		}
		log.Printf("HSI hue=%d sat=%d", s.Hue(), s.Saturation())
	}

	if effect != "" {
		id, params, err := parseEffect(effect)
		if err != nil {
			return err
		}
		if err := s.SetEffect(id, brightness, params); err != nil {
			return fmt.Errorf("set effect: %w", err)
		}
		if spec, ok := scene.Lookup(id); ok {
			log.Printf("Effect %s", spec.Name)
		} else {
			log.Printf("Effect %d", id)
		}
	}

	// Plain brightness, only when not already carried by another command.
	if brightness >= 0 && cct == 0 && hsi == "" && effect == "" {
		if err := s.SetBrightness(brightness); err != nil {
			return fmt.Errorf("set brightness: %w", err)
		}
		log.Printf("Brightness %d", s.Brightness())
	}
	return nil
}

func runScan(adapter ble.Adapter, scanTime time.Duration) {
	log.Printf("Scanning for %s...", scanTime)
	ctx, cancel := context.WithTimeout(context.Background(), scanTime)
	defer cancel()

	lights, err := device.ScanForLights(ctx, adapter)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	if len(lights) == 0 {
		log.Println("No Neewer lights found")
		return
	}
	for _, l := range lights {
		project := lightdb.ParseProjectName(l.Name)
		fmt.Printf("%-20s %-24s rssi=%d  (%s)\n", l.Name, l.Address, l.RSSI, lightdb.NickName(project, l.Address))
	}
}

func runWatch(s *device.Session) {
	s.OnNotify(func(n protocol.Notification) {
		if n.Recognized {
			log.Printf("notification: effect channel -> %d", n.Effect)
			return
		}
		log.Printf("notification: tag=0x%02X raw=% X", n.Tag, n.Raw)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	log.Println("Watching; Ctrl+C to quit.")
	sig := <-sigCh
	log.Printf("Received %s, shutting down...", sig)
}

// pickTarget selects the light to drive: explicit flags first, then the
// config's lights list (which must then contain exactly one entry or a name
// match).
func pickTarget(cfg *config.Config, name, address string) (config.LightConfig, error) {
	if address != "" || name != "" {
		for _, l := range cfg.Lights {
			if (name != "" && l.Name == name) || (address != "" && l.Address == address) {
				return l, nil
			}
		}
		return config.LightConfig{Name: name, Address: address}, nil
	}

	switch len(cfg.Lights) {
	case 0:
		return config.LightConfig{}, fmt.Errorf("no light selected: use -name/-address or add lights to the config")
	case 1:
		return cfg.Lights[0], nil
	default:
		return config.LightConfig{}, fmt.Errorf("config lists %d lights: select one with -name or -address", len(cfg.Lights))
	}
}

// resolverFor prefers an explicitly configured MAC, falling back to the
// system's bluetoothctl lookup.
func resolverFor(target config.LightConfig) device.Resolver {
	if mac, ok := device.ParseMAC(target.MAC); ok {
		return staticResolver(mac)
	}
	return device.BluetoothctlResolver{}
}

type staticResolver [6]byte

func (r staticResolver) ResolveMAC(_, _ string) ([6]byte, bool) { return [6]byte(r), true }

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("-power must be on or off, got %q", s)
	}
}

// parseHSI parses "hue,saturation[,brightness]".
func parseHSI(s string, brightness int) (hue, sat, brr int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("-hsi must be hue,saturation[,brightness], got %q", s)
	}
	hue, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("-hsi hue: %w", err)
	}
	sat, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("-hsi saturation: %w", err)
	}
	brr = brightness
	if len(parts) == 3 {
		brr, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("-hsi brightness: %w", err)
		}
	}
	return hue, sat, brr, nil
}

// parseEffect parses "id[,key=value...]".
func parseEffect(s string) (int, scene.Params, error) {
	parts := strings.Split(s, ",")
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, nil, fmt.Errorf("-effect id: %w", err)
	}
	params := scene.Params{}
	for _, kv := range parts[1:] {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, nil, fmt.Errorf("-effect parameter %q must be key=value", kv)
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, nil, fmt.Errorf("-effect parameter %q: %w", kv, err)
		}
		params[strings.TrimSpace(key)] = n
	}
	return id, params, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}
