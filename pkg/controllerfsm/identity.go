package controllerfsm

import "github.com/i-n-g-o/avdecc/pkg/entitymodel"

// DeriveEntityID builds an EUI-64 entity identifier from a network
// interface's MAC address and a 16-bit program identifier, following
// the scheme la_avdecc controllers use to support several local
// instances sharing one NIC: the MAC's OUI becomes the top 3 octets,
// ProgID fills the middle 2, and the MAC's NIC-specific suffix fills
// the bottom 3 — mirroring the EUI-48-to-EUI-64 expansion used
// elsewhere in networking (e.g. IPv6 SLAAC), but with ProgID in place
// of the fixed FF:FE filler.
func DeriveEntityID(mac entitymodel.MacAddress, progID uint16) uint64 {
	var id uint64
	id |= uint64(mac[0]) << 56
	id |= uint64(mac[1]) << 48
	id |= uint64(mac[2]) << 40
	id |= uint64(progID) << 24
	id |= uint64(mac[3]) << 16
	id |= uint64(mac[4]) << 8
	id |= uint64(mac[5])
	return id
}
