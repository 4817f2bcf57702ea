package game

var directions = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // top left to bottom right
	{1, -1}, // top right to bottom left
}

// LineThrough reports whether the piece at pos is part of k or more same coloured pieces in a row.
// Only the four lines passing through pos are inspected. An empty position never wins.
func LineThrough(board []Colour, rows, cols, pos, k int) bool {
	if pos < 0 || pos >= len(board) {
		return false
	}
	c := board[pos]
	if c == None {
		return false
	}
	row, col := pos/cols, pos%cols
	for _, d := range directions {
		count := 1
		count += run(board, rows, cols, row, col, d[0], d[1], c)
		count += run(board, rows, cols, row, col, -d[0], -d[1], c)
		if count >= k {
			return true
		}
	}
	return false
}

// run counts the pieces of colour c going from (row, col) in direction (dr, dc), excluding (row, col).
func run(board []Colour, rows, cols, row, col, dr, dc int, c Colour) (n int) {
	for r, cl := row+dr, col+dc; r >= 0 && r < rows && cl >= 0 && cl < cols; r, cl = r+dr, cl+dc {
		if board[r*cols+cl] != c {
			break
		}
		n++
	}
	return n
}
