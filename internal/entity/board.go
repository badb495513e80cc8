package entity

import (
	"fmt"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
)

const (
	MarkX = "X"
	MarkO = "O"

	EmptyCell = ""

	BoardSize = 9
)

// WinningLines are the 8 canonical index triples: 3 rows, 3 columns, 2 diagonals.
var WinningLines = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 9-cell playing field, row-major. Each cell is EmptyCell, MarkX or MarkO.
type Board [BoardSize]string

// Result is the outcome of evaluating a board: a winner with its line, a draw,
// or neither when the game can still continue.
type Result struct {
	Winner string
	Line   []int
	Draw   bool
}

func NewBoard() Board {
	return Board{}
}

// Apply places mark on the given cell and returns the resulting board.
// The receiver is never modified.
func (that Board) Apply(cell int, mark string) (Board, error) {
	if cell < 0 || cell >= BoardSize {
		return that, fmt.Errorf("%w: cell %d is out of range", apperror.ErrInvalidMove, cell)
	}

	if that[cell] != EmptyCell {
		return that, fmt.Errorf("%w: cell %d is already occupied", apperror.ErrInvalidMove, cell)
	}

	that[cell] = mark

	return that, nil
}

// Evaluate scans the 8 canonical lines for a winner, then checks for a draw.
func (that Board) Evaluate() Result {
	for _, line := range WinningLines {
		a, b, c := that[line[0]], that[line[1]], that[line[2]]
		if a != EmptyCell && a == b && b == c {
			return Result{Winner: a, Line: []int{line[0], line[1], line[2]}}
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return Result{}
		}
	}

	return Result{Draw: true}
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// ToggleMark returns the opposing mark.
func ToggleMark(mark string) string {
	if mark == MarkX {
		return MarkO
	}

	return MarkX
}
