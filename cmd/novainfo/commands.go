package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/diag"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/internal/vulkan"
	"github.com/coler706/nova-renderer/lifecycle"
	"github.com/coler706/nova-renderer/memory"
	"github.com/coler706/nova-renderer/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

func adaptersCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "adapters",
		Usage: "Print every adapter as seen against a window surface, as JSON",
		Action: func(c *cli.Context) error {
			window, err := openWindow(s.settings.Application.Name)
			if err != nil {
				return err
			}
			defer window.Close()

			loader, err := vulkan.NewLoader(s.logger, window.ProcAddr())
			if err != nil {
				return gpu.PlatformAPIFailure(err, "could not load vulkan")
			}

			extensions, err := window.RequiredExtensions()
			if err != nil {
				return err
			}
			instance, err := loader.CreateInstance(gpu.InstanceInfo{
				ApplicationName:    s.settings.Application.Name,
				ApplicationVersion: s.settings.Application.Version,
				EngineName:         s.settings.Engine.Name,
				EngineVersion:      s.settings.Engine.Version,
				APIVersion:         gpu.Version{Major: 1},
				Extensions:         extensions,
			})
			if err != nil {
				return gpu.PlatformAPIFailure(err, "could not create instance")
			}

			owner := lifecycle.NewOwner(s.logger, instance)
			defer func() {
				_ = owner.Teardown()
			}()

			surface, err := window.CreateSurface(instance)
			if err != nil {
				return gpu.PlatformAPIFailure(err, "could not create window surface")
			}
			owner.AdoptSurface(surface)

			inventory, err := adapter.Enumerate(s.logger, instance, surface)
			if err != nil {
				return err
			}

			err = inventory.WriteReport(os.Stdout)
			if err != nil {
				return err
			}
			fmt.Println()

			selection, err := adapter.Select(s.logger, inventory)
			if err != nil {
				s.logger.Warn("No adapter would be selected", slog.String("kind", gpu.Kind(err)), slog.String("detail", errors.FlattenDetails(err)))
			} else {
				s.logger.Info("Adapter that would be selected", slog.Int("index", selection.Adapter.Index))
			}
			return nil
		},
	}
}

// bringUp opens a window and creates the full render context on it
func (s *session) bringUp() (*render.Context, func(), error) {
	window, err := openWindow(s.settings.Application.Name)
	if err != nil {
		return nil, nil, err
	}

	loader, err := vulkan.NewLoader(s.logger, window.ProcAddr())
	if err != nil {
		window.Close()
		return nil, nil, gpu.PlatformAPIFailure(err, "could not load vulkan")
	}

	context, err := render.New(s.logger, loader, window, s.settings)
	if err != nil {
		window.Close()
		return nil, nil, err
	}

	s.logger.Info("Render context ready",
		slog.Bool("diagnostics", diag.Enabled),
		slog.Int("framesInFlight", s.settings.FramesInFlight),
		slog.Int("workers", s.settings.Workers()),
	)

	closeAll := func() {
		err := context.Destroy()
		if err != nil {
			s.logger.Warn("Render context teardown reported errors", slog.Any("error", err))
		}
		window.Close()
	}
	return context, closeAll, nil
}

func initCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Bring up the render context, print allocator statistics and shut down",
		Action: func(c *cli.Context) error {
			context, closeAll, err := s.bringUp()
			if err != nil {
				return err
			}
			defer closeAll()

			resources, err := context.Resources()
			if err != nil {
				return err
			}

			stats, err := resources.Device.Allocator.BuildStatsString(true)
			if err != nil {
				return err
			}
			fmt.Println(stats)
			return nil
		},
	}
}

func statsCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Bring up the render context and print allocator metrics in prometheus text format",
		Action: func(c *cli.Context) error {
			context, closeAll, err := s.bringUp()
			if err != nil {
				return err
			}
			defer closeAll()

			resources, err := context.Resources()
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			err = registry.Register(memory.NewCollector(resources.Device.Allocator))
			if err != nil {
				return errors.Wrap(err, "could not register allocator collector")
			}

			families, err := registry.Gather()
			if err != nil {
				return errors.Wrap(err, "could not gather allocator metrics")
			}

			for _, family := range families {
				_, err = expfmt.MetricFamilyToText(os.Stdout, family)
				if err != nil {
					return errors.Wrap(err, "could not write metrics")
				}
			}
			return nil
		},
	}
}
