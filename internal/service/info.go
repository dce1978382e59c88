package service

// InfoKind discriminates Info variants.
type InfoKind int

const (
	InfoIdle InfoKind = iota
	InfoShutdown
	InfoSaved
	InfoAutosaved
	InfoWarning
	InfoProject
)

// ProjectInfoKind discriminates the ProjectInfo sub-variant of Info.
type ProjectInfoKind int

const (
	ProjectInfoBlueprintsChanged ProjectInfoKind = iota
	ProjectInfoUniverseListChanged
	ProjectInfoSettingsChanged
)

// Info is the process-wide semantic event published on the Info watch channel.
type Info struct {
	Kind InfoKind

	// valid when Kind == InfoWarning
	WarningTitle string
	WarningMsg   string

	// valid when Kind == InfoProject
	ProjectInfo ProjectInfoKind
}

func IdleInfo() Info      { return Info{Kind: InfoIdle} }
func ShutdownInfo() Info  { return Info{Kind: InfoShutdown} }
func SavedInfo() Info     { return Info{Kind: InfoSaved} }
func AutosavedInfo() Info { return Info{Kind: InfoAutosaved} }

func WarningInfo(title, msg string) Info {
	return Info{Kind: InfoWarning, WarningTitle: title, WarningMsg: msg}
}

func ProjectInfoEvent(kind ProjectInfoKind) Info {
	return Info{Kind: InfoProject, ProjectInfo: kind}
}
