package types

import "strings"

// InstanceSpec describes the compute footprint behind an instance type string.
type InstanceSpec struct {
	CPUs     int
	MemoryGB int
}

// AcceleratorSpec maps an accelerator type string to the device request the
// container executor makes for it.
type AcceleratorSpec struct {
	DeviceCount int
}

var instanceCatalog = map[string]InstanceSpec{
	"ml.t2.medium":  {CPUs: 2, MemoryGB: 4},
	"ml.m4.xlarge":  {CPUs: 4, MemoryGB: 16},
	"ml.m4.2xlarge": {CPUs: 8, MemoryGB: 32},
	"ml.c5.xlarge":  {CPUs: 4, MemoryGB: 8},
	"ml.p2.xlarge":  {CPUs: 4, MemoryGB: 61},
}

var acceleratorCatalog = map[string]AcceleratorSpec{
	"ml.eia1.medium": {DeviceCount: 1},
	"ml.eia1.large":  {DeviceCount: 1},
	"ml.eia2.xlarge": {DeviceCount: 2},
}

func LookupInstanceType(name string) (InstanceSpec, bool) {
	spec, ok := instanceCatalog[strings.TrimSpace(name)]
	return spec, ok
}

// LookupAcceleratorType resolves an accelerator type string. Empty means no
// accelerator attached, which is a valid deployment.
func LookupAcceleratorType(name string) (AcceleratorSpec, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AcceleratorSpec{}, true
	}
	spec, ok := acceleratorCatalog[name]
	return spec, ok
}
