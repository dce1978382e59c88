package dmx

// UpdateKind discriminates the three shapes a UniverseUpdate can take.
type UpdateKind int

const (
	UpdateSingle UpdateKind = iota
	UpdateMany
	UpdateEntire
)

// UpdateChunk pairs the fixture address written with the octet written there. Each chunk
// carries its own universe, so one Many update can batch writes across several universes
// and subscribers filter it down to the entries they care about.
type UpdateChunk struct {
	Address FixtureAddress
	Value   byte
}

// UniverseUpdate is the value flowing from writers (RPC handlers, resend commands, adapt
// resets) to every subscriber of the universe broadcast.
type UniverseUpdate struct {
	Kind UpdateKind

	// valid when Kind == UpdateSingle
	Single UpdateChunk

	// valid when Kind == UpdateMany
	Many []UpdateChunk

	// valid when Kind == UpdateEntire
	Universe UniverseID
	Entire   Universe
}

// SingleUpdate builds a single-slot update.
func SingleUpdate(address FixtureAddress, value byte) UniverseUpdate {
	return UniverseUpdate{
		Kind:   UpdateSingle,
		Single: UpdateChunk{Address: address, Value: value},
	}
}

// ManyUpdate builds a batched update; the chunks may address different universes.
func ManyUpdate(chunks []UpdateChunk) UniverseUpdate {
	return UniverseUpdate{
		Kind: UpdateMany,
		Many: chunks,
	}
}

// EntireUpdate builds a full-universe replacement update.
func EntireUpdate(universe UniverseID, snapshot Universe) UniverseUpdate {
	return UniverseUpdate{
		Kind:     UpdateEntire,
		Universe: universe,
		Entire:   snapshot,
	}
}

// RuntimeCommandKind discriminates RuntimeCommand variants.
type RuntimeCommandKind int

const (
	CommandResendUniverses RuntimeCommandKind = iota
	CommandResendUniverse
	CommandUpdateData
)

// RuntimeCommand is submitted to the universe runtime's inbound queue.
type RuntimeCommand struct {
	Kind RuntimeCommandKind

	// valid when Kind == CommandResendUniverse
	ResendUniverse UniverseID

	// valid when Kind == CommandUpdateData
	Update UniverseUpdate
}

// ResendUniversesCommand requests an Entire publication for every configured universe.
func ResendUniversesCommand() RuntimeCommand {
	return RuntimeCommand{Kind: CommandResendUniverses}
}

// ResendUniverseCommand requests an Entire publication for a single universe.
func ResendUniverseCommand(u UniverseID) RuntimeCommand {
	return RuntimeCommand{Kind: CommandResendUniverse, ResendUniverse: u}
}

// UpdateDataCommand wraps an update for in-place application to the runtime's state.
func UpdateDataCommand(update UniverseUpdate) RuntimeCommand {
	return RuntimeCommand{Kind: CommandUpdateData, Update: update}
}
