package adapter

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildReport renders the inventory as a JSON document
func (i *Inventory) BuildReport() ([]byte, error) {
	writer := jwriter.NewWriter()

	arrayState := writer.Array()
	for _, descriptor := range i.adapters {
		obj := arrayState.Object()
		descriptor.printReport(&obj)
		obj.End()
	}
	arrayState.End()

	if err := writer.Error(); err != nil {
		return nil, errors.Wrap(err, "could not build adapter report")
	}
	return writer.Bytes(), nil
}

// WriteReport writes BuildReport's output to w
func (i *Inventory) WriteReport(w io.Writer) error {
	report, err := i.BuildReport()
	if err != nil {
		return err
	}

	_, err = w.Write(report)
	return errors.Wrap(err, "could not write adapter report")
}

func (d *Descriptor) printReport(json *jwriter.ObjectState) {
	json.Name("Index").Int(d.Index)
	json.Name("Name").String(d.Name())
	json.Name("Vendor").String(gpu.VendorName(d.VendorID()))
	json.Name("Type").String(d.Properties.Type.String())
	json.Name("APIVersion").String(d.Properties.APIVersion.String())
	json.Name("IntegratedClass").Bool(d.IsIntegratedClass())

	limits := json.Name("Limits").Object()
	limits.Name("MaxImageDimension2D").Int(d.Properties.Limits.MaxImageDimension2D)
	limits.Name("MaxImageArrayLayers").Int(d.Properties.Limits.MaxImageArrayLayers)
	limits.Name("MaxMemoryAllocationCount").Int(d.Properties.Limits.MaxMemoryAllocationCount)
	limits.End()

	families := json.Name("QueueFamilies").Array()
	for _, family := range d.QueueFamilies {
		obj := families.Object()
		obj.Name("Flags").String(family.Flags.String())
		obj.Name("QueueCount").Int(family.QueueCount)
		obj.Name("Present").Bool(family.SupportsPresent)
		obj.End()
	}
	families.End()

	extensions := json.Name("Extensions").Array()
	for _, name := range d.Extensions {
		extensions.String(name)
	}
	extensions.End()

	json.Name("SurfaceFormats").Int(len(d.SurfaceFormats))

	modes := json.Name("PresentModes").Array()
	for _, mode := range d.PresentModes {
		modes.String(mode.String())
	}
	modes.End()

	heaps := json.Name("MemoryHeaps").Array()
	for _, heap := range d.Memory.Heaps {
		obj := heaps.Object()
		obj.Name("Size").Int(heap.Size)
		obj.Name("DeviceLocal").Bool(heap.DeviceLocal)
		obj.End()
	}
	heaps.End()

	features := json.Name("Features").Array()
	for _, name := range d.Features.Names() {
		features.String(name)
	}
	features.End()
}
