package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills defaults and checks the config. The returned
// copy is the one to run with.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Storage.Driver = strings.ToLower(strings.TrimSpace(out.Storage.Driver))
	if out.Storage.Driver == "" {
		out.Storage.Driver = "sqlite"
	}

	if out.Ingest.StalenessHours == 0 {
		out.Ingest.StalenessHours = 24
	}
	if out.Ingest.CaptureMaxChars == 0 {
		out.Ingest.CaptureMaxChars = 10000
	}
	if out.Ingest.ImportsPerMinute == 0 {
		out.Ingest.ImportsPerMinute = 6
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	switch out.Storage.Driver {
	case "sqlite":
		if out.Storage.DSN != "" {
			res.addWarn("storage.dsn is ignored with the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(out.Storage.DSN) == "" {
			res.addErr("storage.dsn is required when storage.driver=postgres")
		}
	default:
		res.addErr("storage.driver must be sqlite or postgres, got %q", out.Storage.Driver)
	}

	if out.Ingest.StalenessHours < 0 {
		res.addErr("ingest.staleness_hours must be >= 0")
	} else if out.Ingest.StalenessHours > 0 && out.Ingest.StalenessHours < 6 {
		res.addWarn("ingest.staleness_hours is very low (%d); listings may expire between daily imports.", out.Ingest.StalenessHours)
	}
	if out.Ingest.CaptureMaxChars < 0 {
		res.addErr("ingest.capture_max_chars must be >= 0")
	}
	if out.Ingest.ImportsPerMinute < 0 {
		res.addErr("ingest.imports_per_minute must be >= 0")
	}

	return out, res
}

// Validate is the startup-time wrapper: errors only.
func Validate(cfg Config) error {
	_, vr := NormalizeAndValidate(cfg)
	if !vr.OK() {
		return fmt.Errorf("config validation failed:\n- %s", strings.Join(vr.Errors, "\n- "))
	}
	return nil
}
