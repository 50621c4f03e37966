// tileconv converts L1J passability tile files (one flag byte per cell) to
// the terrain cost CSV read by data.LoadMapData: -1 is a wall, anything else
// is the extra cost of entering the cell.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/l1jgo/pathfinder/internal/data"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: tileconv <l1j-tiles.txt> <output.txt>")
		os.Exit(1)
	}

	inFile, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer inFile.Close()

	out, err := os.Create(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	scanner := bufio.NewScanner(inFile)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	var rows, walls, combat int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		toks := strings.Split(line, ",")
		cells := make([]string, len(toks))
		for i, tok := range toks {
			v, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 8)
			if err != nil {
				fmt.Fprintf(os.Stderr, "line %d column %d: %v\n", rows+1, i+1, err)
				os.Exit(1)
			}
			t := data.TerrainFromTile(byte(v))
			switch {
			case t.Wall:
				cells[i] = "-1"
				walls++
			default:
				cells[i] = strconv.Itoa(t.Cost)
				if t.Cost == data.CombatZoneCost {
					combat++
				}
			}
		}
		fmt.Fprintln(w, strings.Join(cells, ","))
		rows++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s (%d walls, %d combat-zone cells; add them as danger_zones in map_list.yaml)\n",
		rows, os.Args[2], walls, combat)
}
