// Package config loads the renderer settings file. Settings are plain values:
// load once at startup and pass them down by pointer.
package config

import (
	"bytes"
	"io"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/logging"
	"gopkg.in/yaml.v3"
)

type Identity struct {
	Name    string      `yaml:"name"`
	Version gpu.Version `yaml:"version"`
}

type Settings struct {
	Application Identity `yaml:"application"`
	Engine      Identity `yaml:"engine"`

	// FramesInFlight is the number of semaphore pairs in the frame sync set
	FramesInFlight int `yaml:"framesInFlight"`
	// CommandWorkers is the number of command pools created. 0 means one per CPU.
	CommandWorkers int `yaml:"commandWorkers"`
	// ValidationLayers are only requested in nova_debug builds
	ValidationLayers []string `yaml:"validationLayers"`
	LogLevel         string   `yaml:"logLevel"`

	Memory struct {
		// HeapSizeLimits caps allocation per heap, 0 meaning no cap. It must be empty
		// or have one entry per heap of the selected adapter.
		HeapSizeLimits []int `yaml:"heapSizeLimits"`
	} `yaml:"memory"`
}

// Default returns the settings used when no file is given
func Default() Settings {
	return Settings{
		Application: Identity{
			Name:    "Minecraft Nova Renderer",
			Version: gpu.Version{Major: 1},
		},
		Engine: Identity{
			Name:    "Nova Renderer 0.5",
			Version: gpu.Version{Minor: 5},
		},
		FramesInFlight:   2,
		CommandWorkers:   8,
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		LogLevel:         "info",
	}
}

// Load reads path and overlays it on Default
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read settings file %s", path)
	}

	settings, err := Parse(data)
	if err != nil {
		return nil, errors.WithDetailf(err, "settings file %s", path)
	}
	return settings, nil
}

// Parse decodes YAML over Default. Unknown keys are an error.
func Parse(data []byte) (*Settings, error) {
	settings := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&settings)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not parse settings")
	}

	err = settings.Validate()
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) Validate() error {
	if s.FramesInFlight < 1 {
		return errors.Newf("framesInFlight must be at least 1, got %d", s.FramesInFlight)
	}
	if s.CommandWorkers < 0 {
		return errors.Newf("commandWorkers must not be negative, got %d", s.CommandWorkers)
	}
	for i, limit := range s.Memory.HeapSizeLimits {
		if limit < 0 {
			return errors.Newf("memory.heapSizeLimits[%d] must not be negative", i)
		}
	}

	_, err := logging.ParseLevel(s.LogLevel)
	return err
}

// Workers resolves CommandWorkers, substituting the CPU count for 0
func (s *Settings) Workers() int {
	if s.CommandWorkers == 0 {
		return runtime.NumCPU()
	}
	return s.CommandWorkers
}
