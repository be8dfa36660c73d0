package gpu

import "fmt"

const (
	VendorAMD      uint32 = 0x1002
	VendorImgTec   uint32 = 0x1010
	VendorNVIDIA   uint32 = 0x10DE
	VendorARM      uint32 = 0x13B5
	VendorQualcomm uint32 = 0x5143
	VendorIntel    uint32 = 0x8086
)

var vendorNames = map[uint32]string{
	VendorAMD:      "AMD",
	VendorImgTec:   "ImgTec",
	VendorNVIDIA:   "NVIDIA",
	VendorARM:      "ARM",
	VendorQualcomm: "Qualcomm",
	VendorIntel:    "Intel",
}

func VendorName(vendorID uint32) string {
	name, ok := vendorNames[vendorID]
	if !ok {
		return fmt.Sprintf("0x%04X", vendorID)
	}
	return name
}
