package poly

// Rotation is a signed row offset of a column query relative to the current
// constraint row. Rotation(0) is the current row, Rotation(-1) the previous
// one, Rotation(1) the next one.
type Rotation int32

// Cur, Prev and Next are the rotations that occur in practice.
func Cur() Rotation  { return 0 }
func Prev() Rotation { return -1 }
func Next() Rotation { return 1 }
