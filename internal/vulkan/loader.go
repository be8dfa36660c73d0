// Package vulkan implements the gpu platform interfaces on vkngwrapper.
package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

type Loader struct {
	logger *slog.Logger
	loader *core.VulkanLoader
}

var _ gpu.Loader = &Loader{}

// NewLoader wraps the vkGetInstanceProcAddr the windowing layer resolved
func NewLoader(logger *slog.Logger, procAddr unsafe.Pointer) (*Loader, error) {
	loader, err := core.CreateLoaderFromProcAddr(procAddr)
	if err != nil {
		return nil, errors.Wrap(err, "could not create vulkan loader")
	}

	return &Loader{
		logger: logger,
		loader: loader,
	}, nil
}

func (l *Loader) AvailableLayers() ([]string, error) {
	layers, _, err := l.loader.AvailableLayers()
	if err != nil {
		return nil, errors.Wrap(err, "vkEnumerateInstanceLayerProperties")
	}

	names := maps.Keys(layers)
	slices.Sort(names)
	return names, nil
}

func toVersion(version gpu.Version) common.Version {
	return common.CreateVersion(version.Major, version.Minor, version.Patch)
}

func toAPIVersion(version gpu.Version) common.APIVersion {
	return common.APIVersion(toVersion(version))
}

func fromVersion(version common.Version) gpu.Version {
	return gpu.Version{
		Major: version.Major(),
		Minor: version.Minor(),
		Patch: version.Patch(),
	}
}

func (l *Loader) CreateInstance(info gpu.InstanceInfo) (gpu.Instance, error) {
	l.logger.Debug("Loader::CreateInstance")

	instance, _, err := l.loader.CreateInstance(nil, core1_0.InstanceCreateInfo{
		ApplicationName:       info.ApplicationName,
		ApplicationVersion:    toVersion(info.ApplicationVersion),
		EngineName:            info.EngineName,
		EngineVersion:         toVersion(info.EngineVersion),
		APIVersion:            toAPIVersion(info.APIVersion),
		EnabledExtensionNames: info.Extensions,
		EnabledLayerNames:     info.Layers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateInstance")
	}

	return newInstance(l.logger, instance), nil
}
