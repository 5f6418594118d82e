package meta

// Name prefixes the console output and the default config file.
const Name = "obseris"

// DefaultConfigPath is read when -config is not given and the file exists.
const DefaultConfigPath = Name + ".yaml"

// ExperimentsDir holds timestamped experiment outputs.
const ExperimentsDir = "experiments"

// Heuristic agents selectable wherever a checkpoint path is accepted.
const (
	SurfaceHeuristic    = "surface"
	AggressiveHeuristic = "aggressive"
)

// ArenaGames is the default number of games per arena pairing.
const ArenaGames = 30

// MaxHostPieces caps one solo game against the host.
const MaxHostPieces = 1000
