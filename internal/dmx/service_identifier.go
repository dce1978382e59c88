package dmx

// ServiceIdentifier is the 5-byte ASCII tag a client sends as the first bytes of a new
// RPC connection, selecting which service bootstrap handles the rest of the handshake.
type ServiceIdentifier [5]byte

var (
	ServiceGeneral          = ServiceIdentifier{'g', 'e', 'n', 'r', 'l'}
	ServiceProjectSelection = ServiceIdentifier{'p', 'r', 'j', 's', 'l'}
	ServiceProject          = ServiceIdentifier{'p', 'r', 'j', 't', 's'}
)

func (s ServiceIdentifier) String() string {
	return string(s[:])
}
