package protocol

// ProtocolVersion is the semantic version of the register protocol
type ProtocolVersion struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// CurrentProtocolVersion is the version implemented by this firmware
var CurrentProtocolVersion = ProtocolVersion{Major: 1, Minor: 0, Patch: 0}

// NewProtocolVersion creates a ProtocolVersion
func NewProtocolVersion(major, minor, patch uint8) ProtocolVersion {
	return ProtocolVersion{Major: major, Minor: minor, Patch: patch}
}

// IsCompatibleWith reports whether v can serve a peer that needs required:
// the majors must match, and v must be at least as new as required.
func (v ProtocolVersion) IsCompatibleWith(required ProtocolVersion) bool {
	if v.Major != required.Major {
		return false
	}
	if v.Minor != required.Minor {
		return v.Minor > required.Minor
	}
	return v.Patch >= required.Patch
}

// Bytes returns the wire form
func (v ProtocolVersion) Bytes() [3]byte {
	return [3]byte{v.Major, v.Minor, v.Patch}
}

// RenderToBuffer implements Sendable
func (v ProtocolVersion) RenderToBuffer(buffer []byte) (int, error) {
	b := v.Bytes()
	if len(buffer) < len(b) {
		return 0, ErrBufferTooSmall
	}
	return copy(buffer, b[:]), nil
}

// ParseProtocolVersion decodes the three byte register value
func ParseProtocolVersion(data []byte) (ProtocolVersion, error) {
	if len(data) < 3 {
		return ProtocolVersion{}, ErrBadLength
	}
	return ProtocolVersion{Major: data[0], Minor: data[1], Patch: data[2]}, nil
}

func (v ProtocolVersion) String() string {
	return utoa(v.Major) + "." + utoa(v.Minor) + "." + utoa(v.Patch)
}

func utoa(n uint8) string {
	if n == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
