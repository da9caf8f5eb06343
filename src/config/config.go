package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"evilanalysis/src/base"
)

const DefaultFile = "evilanalysis.json"

type Config struct {
	Theme    string        `json:"theme"`    // light/dark
	Engines  []base.Engine `json:"engines"`  // uci engines
	Selected string        `json:"selected"` // engine shown at start
	WindowH  int           `json:"window_h"` //
	WindowW  int           `json:"window_w"` //
	Debug    bool          `json:"debug"`    // true/false

	file string
}

func defaultConfig() Config {
	return Config{
		Theme:   "light",
		WindowH: 720,
		WindowW: 480,
		Debug:   false,
	}
}

// defaults for engines that do not set them
var DefaultGo = base.GoMode{Type: base.GoDepth, Value: 20}

// Load reads file; a missing file gives the defaults.
func Load(file string) (*Config, error) {
	if file == "" {
		file = DefaultFile
	}

	_, err := os.Stat(file)
	if os.IsNotExist(err) {
		def := defaultConfig()
		def.file = file
		return &def, nil
	} else if err != nil {
		return nil, err
	}

	conf, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer conf.Close()

	dec := json.NewDecoder(conf)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("error decode config: %w", err)
	}
	correctableConfig(&c)
	c.file = file

	return &c, nil
}

func (c *Config) File() string {
	return c.file
}

func (c *Config) Save() error {
	file := c.file
	if file == "" {
		file = DefaultFile
	}
	jsonData, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, jsonData, 0644)
}

// AddEngine appends an engine found at path, named after the binary.
func (c *Config) AddEngine(name, path string) (base.Engine, error) {
	name = strings.TrimSpace(name)
	if name == "" || path == "" {
		return base.Engine{}, fmt.Errorf("engine needs a name and a path")
	}
	for _, e := range c.Engines {
		if e.Name == name {
			return base.Engine{}, fmt.Errorf("engine %q already configured", name)
		}
	}
	e := base.Engine{Name: name, Path: path, Loaded: true}
	fillEngine(&e)
	c.Engines = append(c.Engines, e)
	return e, nil
}

func fillEngine(e *base.Engine) {
	if e.Go.Type != base.GoInfinite && e.Go.Value <= 0 {
		e.Go = DefaultGo
	}
	ok := false
	for _, o := range e.Options {
		if o.Name == base.OptionMultiPV {
			ok = true
			break
		}
	}
	if !ok {
		e.Options = base.SetOption(e.Options, base.OptionMultiPV, "1")
	}
}

func correctableConfig(c *Config) {
	def := defaultConfig()
	if c.Theme != "light" && c.Theme != "dark" {
		c.Theme = def.Theme
	}
	if c.WindowH < def.WindowH || c.WindowW < def.WindowW {
		c.WindowH = def.WindowH
		c.WindowW = def.WindowW
	}

	seen := make(map[string]bool)
	engines := c.Engines[:0]
	for _, e := range c.Engines {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" || e.Path == "" || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		fillEngine(&e)
		engines = append(engines, e)
	}
	c.Engines = engines
	if !seen[c.Selected] {
		c.Selected = ""
	}
}
