package archive

import "fmt"

// Level is a compression level from 0 (store) to 9 (ultra).
type Level int

// Named levels. Any value in 0..9 is valid.
const (
	LevelStore   Level = 0
	LevelFastest Level = 1
	LevelFast    Level = 3
	LevelNormal  Level = 5
	LevelMaximum Level = 7
	LevelUltra   Level = 9
)

// Valid reports whether l is in 0..9.
func (l Level) Valid() bool {
	return l >= LevelStore && l <= LevelUltra
}

func (l Level) String() string {
	switch l {
	case LevelStore:
		return "store"
	case LevelFastest:
		return "fastest"
	case LevelFast:
		return "fast"
	case LevelNormal:
		return "normal"
	case LevelMaximum:
		return "maximum"
	case LevelUltra:
		return "ultra"
	default:
		return fmt.Sprintf("level-%d", int(l))
	}
}
