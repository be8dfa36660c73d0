package adapter

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"golang.org/x/exp/slog"
)

// Selection is the adapter the renderer will open plus the queue families that
// serve graphics and presentation. Both families have at least one queue and
// may be the same family.
type Selection struct {
	Adapter        *Descriptor
	GraphicsFamily int
	PresentFamily  int
}

// SharedFamily reports whether graphics and presentation resolved to one family
func (s Selection) SharedFamily() bool {
	return s.GraphicsFamily == s.PresentFamily
}

type rejection struct {
	adapter *Descriptor
	reason  string
}

func (r rejection) String() string {
	return fmt.Sprintf("adapter %d (%s): %s", r.adapter.Index, r.adapter.Name(), r.reason)
}

// Select walks the inventory in order and returns the first adapter that
// qualifies. An integrated-class adapter is skipped whenever the inventory holds
// more than one adapter; beyond that there is no ranking. Finding nothing is
// ErrHardwareUnavailable, with every rejection reason attached as detail.
func Select(logger *slog.Logger, inventory *Inventory) (Selection, error) {
	logger.Debug("Selector::Select")

	var rejections []rejection
	for _, candidate := range inventory.adapters {
		selection, reason := evaluate(candidate, inventory.Len())
		if reason != "" {
			r := rejection{adapter: candidate, reason: reason}
			logger.Debug("Rejected adapter", slog.String("reason", r.String()))
			rejections = append(rejections, r)
			continue
		}

		logger.Info("Selected adapter",
			slog.String("name", candidate.Name()),
			slog.String("vendor", gpu.VendorName(candidate.VendorID())),
			slog.Int("maxImageDimension2D", candidate.Properties.Limits.MaxImageDimension2D),
			slog.Int("maxImageArrayLayers", candidate.Properties.Limits.MaxImageArrayLayers),
			slog.Int("graphicsFamily", selection.GraphicsFamily),
			slog.Int("presentFamily", selection.PresentFamily),
		)
		return selection, nil
	}

	err := gpu.HardwareUnavailable(nil, "no adapter is suitable for rendering")
	for _, r := range rejections {
		err = errors.WithDetail(err, r.String())
	}
	return Selection{}, err
}

func evaluate(candidate *Descriptor, adapterCount int) (Selection, string) {
	if candidate.IsIntegratedClass() && adapterCount > 1 {
		return Selection{}, "integrated-class adapter skipped in favor of alternatives"
	}

	if len(candidate.SurfaceFormats) == 0 {
		return Selection{}, "no supported surface formats"
	}

	if len(candidate.PresentModes) == 0 {
		return Selection{}, "no supported present modes"
	}

	graphics := candidate.GraphicsFamily()
	if graphics < 0 {
		return Selection{}, "no queue family supports graphics"
	}

	present := candidate.PresentFamily()
	if present < 0 {
		return Selection{}, "no queue family can present to the surface"
	}

	return Selection{
		Adapter:        candidate,
		GraphicsFamily: graphics,
		PresentFamily:  present,
	}, ""
}
