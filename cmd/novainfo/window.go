package main

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/internal/vulkan"
	"github.com/veandco/go-sdl2/sdl"
)

// sdlWindow is a hidden window used only to obtain a presentation surface
type sdlWindow struct {
	window *sdl.Window
}

func openWindow(title string) (*sdlWindow, error) {
	err := sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize SDL video")
	}

	err = sdl.VulkanLoadLibrary("")
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "could not load the vulkan library")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, 640, 480, sdl.WINDOW_HIDDEN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, errors.Wrap(err, "could not create window")
	}

	return &sdlWindow{window: window}, nil
}

func (w *sdlWindow) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *sdlWindow) RequiredExtensions() ([]string, error) {
	return w.window.VulkanGetInstanceExtensions(), nil
}

func (w *sdlWindow) CreateSurface(instance gpu.Instance) (gpu.Surface, error) {
	native, ok := instance.(*vulkan.Instance)
	if !ok {
		return nil, errors.Newf("instance %T was not created by the vulkan loader", instance)
	}

	// SDL wants a pointer-kinded VkInstance and hands back the address of the surface handle
	surfacePtr, err := w.window.VulkanCreateSurface((*byte)(native.Handle()))
	if err != nil {
		return nil, errors.Wrap(err, "SDL_Vulkan_CreateSurface")
	}

	return native.SurfaceFromHandle(*(*unsafe.Pointer)(unsafe.Pointer(surfacePtr)))
}

func (w *sdlWindow) Close() {
	w.window.Destroy()
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}
