package piece

type shapeDef struct {
	name   string
	blocks [Size][Size]int
}

// rows are written top to bottom for readability and transposed at init.
var shapeRows = []struct {
	name string
	rows [Size]string
}{
	{"Line", [Size]string{"...", "###", "..."}},
	{"C", [Size]string{"...", "###", "#.#"}},
	{"Plus", [Size]string{".#.", "###", ".#."}},
	{"Dot", [Size]string{"...", ".#.", "..."}},
	{"Square", [Size]string{"##.", "##.", "..."}},
	{"L", [Size]string{"...", "###", "..#"}},
	{"J", [Size]string{"..#", "###", "..."}},
	{"Corner", [Size]string{"...", "##.", "#.."}},
	{"Inverse Corner", [Size]string{"#..", "##.", "..."}},
	{"Diagonal", [Size]string{"#..", ".#.", "..#"}},
	{"Double", [Size]string{".#.", ".#.", "..."}},
	{"T", [Size]string{"...", "###", ".#."}},
	{"Y", [Size]string{"#.#", ".#.", ".#."}},
	{"Brick", [Size]string{"##.", "##.", "##."}},
	{"Wave", [Size]string{".##", "##.", "#.."}},
}

var catalog = buildCatalog()

func buildCatalog() []shapeDef {
	defs := make([]shapeDef, len(shapeRows))
	for i, s := range shapeRows {
		defs[i].name = s.name
		for y, row := range s.rows {
			for x := range Size {
				if row[x] == '#' {
					defs[i].blocks[x][y] = 1
				}
			}
		}
	}
	return defs
}

// Shapes is the number of catalog shapes. Valid shape ids are 0..Shapes-1.
func Shapes() int { return len(catalog) }
