package game

// Host input actions. A path is a sequence of these ending in ActionHardDrop.
const (
	ActionMoveLeft    = "MOVE_LEFT"
	ActionMoveRight   = "MOVE_RIGHT"
	ActionSoftDrop    = "SOFT_DROP"
	ActionRotateLeft  = "ROTATE_LEFT"
	ActionRotateRight = "ROTATE_RIGHT"
	ActionHardDrop    = "HARD_DROP"
)

// searchActions is the expansion order of the placement search.
var searchActions = [...]string{
	ActionMoveLeft,
	ActionMoveRight,
	ActionSoftDrop,
	ActionRotateLeft,
	ActionRotateRight,
}

func isRotation(action string) bool {
	return action == ActionRotateLeft || action == ActionRotateRight
}
