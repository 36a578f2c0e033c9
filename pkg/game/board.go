package game

import (
	"errors"
	"math/rand"
)

const (
	BoardSize = 8
	NumCells  = BoardSize * BoardSize
)

var (
	ErrOutOfBounds     = errors.New("cell out of bounds")
	ErrAlreadyRevealed = errors.New("cell already revealed")
)

type Coord struct {
	Row int
	Col int
}

type Cell struct {
	Mine     bool
	Revealed bool
}

// Board is an 8x8 grid shared by the two players of a session. Cells only
// ever move from hidden to revealed.
type Board struct {
	cells    [BoardSize][BoardSize]Cell
	mines    int
	revealed int
}

// NewBoard places count mines on distinct cells chosen uniformly at random.
// count is clamped to [1, NumCells-1] so every game can terminate.
func NewBoard(count int, r *rand.Rand) *Board {
	if count < 1 {
		count = 1
	}
	if count > NumCells-1 {
		count = NumCells - 1
	}

	board := Board{mines: count}

	placed := 0
	for placed < count {
		row := r.Intn(BoardSize)
		col := r.Intn(BoardSize)
		if board.cells[row][col].Mine {
			continue
		}
		board.cells[row][col].Mine = true
		placed++
	}

	return &board
}

// NewBoardFromMines builds a board with mines at exactly the given cells.
func NewBoardFromMines(mines ...Coord) *Board {
	board := Board{}
	for _, mine := range mines {
		if !board.cells[mine.Row][mine.Col].Mine {
			board.cells[mine.Row][mine.Col].Mine = true
			board.mines++
		}
	}
	return &board
}

func inBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// Reveal marks a hidden cell as revealed and reports whether it was a mine.
// The cell stays revealed no matter what the caller does with the result.
func (b *Board) Reveal(row, col int) (bool, error) {
	if !inBounds(row, col) {
		return false, ErrOutOfBounds
	}

	cell := &b.cells[row][col]
	if cell.Revealed {
		return false, ErrAlreadyRevealed
	}

	cell.Revealed = true
	b.revealed++
	return cell.Mine, nil
}

func (b *Board) IsRevealed(row, col int) bool {
	return inBounds(row, col) && b.cells[row][col].Revealed
}

// Exhausted reports whether every cell has been revealed.
func (b *Board) Exhausted() bool {
	return b.revealed == NumCells
}

func (b *Board) NumMines() int {
	return b.mines
}

func (b *Board) NumRevealed() int {
	return b.revealed
}
