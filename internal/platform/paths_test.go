package platform

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPathsForLinuxWithXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}, "/fallback/config", "/fallback/data", "tavla")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if want := filepath.Join("/xdg/config", "tavla", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if want := filepath.Join("/xdg/data", "tavla", "tavla.db"); p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
	if want := filepath.Join("/xdg/data", "tavla", "log"); p.LogDir != want {
		t.Fatalf("unexpected log dir %q", p.LogDir)
	}
}

func TestPathsForWindowsUsesAppData(t *testing.T) {
	p, err := PathsFor("windows", map[string]string{
		"APPDATA":      `C:\Users\me\AppData\Roaming`,
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
	}, `C:\fallback\config`, `C:\fallback\data`, "tavla")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if want := filepath.Join(`C:\Users\me\AppData\Roaming`, "tavla", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if want := filepath.Join(`C:\Users\me\AppData\Local`, "tavla", "tavla.db"); p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

func TestPathsForDarwinKeepsBaseDirs(t *testing.T) {
	p, err := PathsFor("darwin", map[string]string{"XDG_CONFIG_HOME": "/ignored"}, "/Users/me/Library/Application Support", "/Users/me/Library/Application Support", "tavla")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if strings.Contains(p.ConfigPath, "ignored") {
		t.Fatalf("expected XDG to be ignored on darwin, got %q", p.ConfigPath)
	}
}

func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("linux", nil, "", "/d", "tavla"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := PathsFor("linux", nil, "/c", "/d", " "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

func TestDefaultPathsDevModeSuffix(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{AppName: "tavla", DevMode: true})
	if err != nil {
		t.Skipf("no user dirs in this environment: %v", err)
	}
	if !strings.Contains(p.DBPath, "tavla-dev") {
		t.Fatalf("expected dev suffix in %q", p.DBPath)
	}
}
