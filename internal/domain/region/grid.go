package region

// Neighbors returns the 0-based indices orthogonally adjacent to index on a
// row-major grid with perRow columns holding total cells. Order: up, down,
// right, left. Nothing is cached so the result follows any change of dimensions.
func Neighbors(index, perRow, total int) []int {
	if perRow <= 0 || index < 0 || index >= total {
		return nil
	}

	row := index / perRow
	rows := (total + perRow - 1) / perRow

	out := make([]int, 0, 4)
	if row > 0 {
		out = append(out, index-perRow)
	}
	if row < rows-1 && index+perRow < total {
		out = append(out, index+perRow)
	}
	if (index+1)%perRow != 0 && index+1 < total {
		out = append(out, index+1)
	}
	if index%perRow != 0 {
		out = append(out, index-1)
	}
	return out
}

// Position returns the row and column of a region id.
func Position(id, perRow int) (row, col int) {
	if perRow <= 0 || id <= 0 {
		return 0, 0
	}
	i := id - 1
	return i / perRow, i % perRow
}
