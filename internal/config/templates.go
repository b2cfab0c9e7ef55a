package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders a starter wlgen.toml.
func Template() (string, error) {
	cfg := Default()
	cfg.Package = "greeter"
	cfg.Output = "examples/greeter"
	cfg.Strict = true
	cfg.Lock = "examples/greeter/wlgen.lock.json"
	cfg.Protocols = []ProtocolConfig{{Schema: "examples/greeter/greeter.toml"}}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("config template encode failed: %w", err)
	}
	return string(data), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
