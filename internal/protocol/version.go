package protocol

import "fmt"

// VersionReplySize is how many bytes are requested after a version query.
const VersionReplySize = 32

// Version is the firmware version reported by a module.
type Version struct {
	Major      uint8
	Minor      uint8
	Patch      uint8
	PreRelease bool
}

// DecodeVersion parses a version reply. ok is false when fewer than three
// bytes came back.
func DecodeVersion(b []byte) (v Version, ok bool) {
	if len(b) < 3 {
		return Version{}, false
	}
	return Version{
		Major:      b[0],
		Minor:      (b[1] & 0xF0) >> 4,
		Patch:      b[1] & 0x0F,
		PreRelease: b[2] == 1,
	}, true
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease {
		s += " (pre-release)"
	}
	return s
}
