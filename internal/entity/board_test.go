package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
)

func TestBoard_Apply(t *testing.T) {
	t.Run("Places a mark on an empty cell", func(t *testing.T) {
		// Given: an empty board
		board := NewBoard()

		// When: X is applied to cell 4
		next, err := board.Apply(4, MarkX)

		// Then: the result differs from the input only at cell 4
		require.NoError(t, err)
		assert.Equal(t, MarkX, next[4])
		assert.Equal(t, EmptyCell, board[4])
		for i := range board {
			if i == 4 {
				continue
			}
			assert.Equal(t, board[i], next[i])
		}
	})

	t.Run("Fails with ErrInvalidMove when index is out of range", func(t *testing.T) {
		// Given: an empty board
		board := NewBoard()

		// When: applying to indices outside [0,8]
		_, errNegative := board.Apply(-1, MarkX)
		_, errTooLarge := board.Apply(9, MarkX)

		// Then: both fail with ErrInvalidMove
		require.ErrorIs(t, errNegative, apperror.ErrInvalidMove)
		require.ErrorIs(t, errTooLarge, apperror.ErrInvalidMove)
	})

	t.Run("Fails with ErrInvalidMove when the cell is occupied", func(t *testing.T) {
		// Given: a board with X on cell 0
		board := NewBoard()
		board, err := board.Apply(0, MarkX)
		require.NoError(t, err)

		// When: O tries the same cell
		next, err := board.Apply(0, MarkO)

		// Then: it fails and the board is unchanged
		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.Equal(t, board, next)
	})
}

func TestBoard_Evaluate(t *testing.T) {
	t.Run("Reports a winner for each canonical line", func(t *testing.T) {
		for _, line := range WinningLines {
			// Given: a board where O fills one canonical line
			board := NewBoard()
			for _, cell := range line {
				board[cell] = MarkO
			}

			// When: evaluating the board
			result := board.Evaluate()

			// Then: O wins with that exact line
			assert.Equal(t, MarkO, result.Winner)
			assert.Equal(t, []int{line[0], line[1], line[2]}, result.Line)
			assert.False(t, result.Draw)
		}
	})

	t.Run("Reports in-progress for a partially filled board", func(t *testing.T) {
		// Given: a board with a single move
		board := Board{MarkX}

		// When: evaluating the board
		result := board.Evaluate()

		// Then: neither winner nor draw
		assert.Empty(t, result.Winner)
		assert.False(t, result.Draw)
	})

	t.Run("Reports a draw on a full board without a winner", func(t *testing.T) {
		// Given: a full board with no uniform line
		board := Board{
			MarkX, MarkO, MarkX,
			MarkX, MarkO, MarkO,
			MarkO, MarkX, MarkX,
		}

		// When: evaluating the board
		result := board.Evaluate()

		// Then: a draw with no winner
		assert.True(t, result.Draw)
		assert.Empty(t, result.Winner)
		assert.Nil(t, result.Line)
	})

	t.Run("A tie never reports a winner", func(t *testing.T) {
		// Given: an empty board
		board := NewBoard()

		// When: evaluating
		result := board.Evaluate()

		// Then: no winner and no draw
		assert.Empty(t, result.Winner)
		assert.False(t, result.Draw)
	})
}

func TestToggleMark(t *testing.T) {
	assert.Equal(t, MarkO, ToggleMark(MarkX))
	assert.Equal(t, MarkX, ToggleMark(MarkO))
}
