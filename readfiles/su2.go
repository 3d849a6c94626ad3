package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/paulmach/orb"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle      SU2ElementType = 5
	ELType_Quadrilateral SU2ElementType = 9
)

// SU2Grid is a 2D SU2 mesh plus its named boundary markers, each a list of
// vertex pairs.
type SU2Grid struct {
	Mesh    *mesh.Mesh
	Markers map[string][][2]int
}

func ReadSU2(filename string, verbose bool) (grid *SU2Grid, err error) {
	var (
		file *os.File
	)
	if verbose {
		log.Printf("Reading SU2 file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", filename, err)
	}
	defer file.Close()
	if grid, err = ParseSU2(file); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if verbose {
		log.Printf("Read %d elements, %d vertices, %d markers\n",
			grid.Mesh.NumElements(), grid.Mesh.NumVertices(), len(grid.Markers))
	}
	return
}

func ParseSU2(r io.Reader) (grid *SU2Grid, err error) {
	var (
		reader = bufio.NewReader(r)
		dim    int
		elems  []mesh.Element
		verts  []orb.Point
	)
	if dim, err = readNumber(reader); err != nil {
		return
	}
	if dim != 2 {
		return nil, fmt.Errorf("only 2 dimensional grids are supported, have NDIME= %d", dim)
	}
	if elems, err = readElements(reader); err != nil {
		return
	}
	if verts, err = readVertices(reader); err != nil {
		return
	}
	grid = &SU2Grid{}
	if grid.Markers, err = readMarkers(reader); err != nil {
		return nil, err
	}
	if grid.Mesh, err = mesh.NewMesh(verts, elems); err != nil {
		return nil, err
	}
	return
}

func readMarkers(reader *bufio.Reader) (markers map[string][][2]int, err error) {
	var (
		nType, v1, v2 int
		nMarks        int
	)
	if nMarks, err = readNumber(reader); err != nil {
		// markers are optional
		return map[string][][2]int{}, nil
	}
	markers = make(map[string][][2]int, nMarks)
	for n := 0; n < nMarks; n++ {
		var (
			label  string
			nEdges int
			line   string
		)
		if label, err = readLabel(reader); err != nil {
			return
		}
		if nEdges, err = readNumber(reader); err != nil {
			return
		}
		for i := 0; i < nEdges; i++ {
			if line, err = getLine(reader); err != nil {
				return
			}
			if _, err = fmt.Sscanf(line, "%d %d %d", &nType, &v1, &v2); err != nil {
				return nil, fmt.Errorf("marker %s line [%s]: %w", label, line, err)
			}
			if SU2ElementType(nType) != ELType_LINE {
				return nil, fmt.Errorf("marker %s: boundaries should only contain line elements in 2D", label)
			}
			// duplicate tags append, so periodic pairs end up in one list
			markers[label] = append(markers[label], [2]int{v1, v2})
		}
	}
	return
}

func readVertices(reader *bufio.Reader) (verts []orb.Point, err error) {
	var (
		x, y float64
		nv   int
		line string
	)
	if nv, err = readNumber(reader); err != nil {
		return
	}
	verts = make([]orb.Point, nv)
	for i := 0; i < nv; i++ {
		if line, err = getLine(reader); err != nil {
			return
		}
		if _, err = fmt.Sscanf(line, "%f %f", &x, &y); err != nil {
			return nil, fmt.Errorf("unable to read coordinates from [%s]: %w", line, err)
		}
		verts[i] = orb.Point{x, y}
	}
	return
}

func readElements(reader *bufio.Reader) (elems []mesh.Element, err error) {
	var (
		K    int
		line string
	)
	if K, err = readNumber(reader); err != nil {
		return
	}
	elems = make([]mesh.Element, K)
	for k := 0; k < K; k++ {
		if line, err = getLine(reader); err != nil {
			return
		}
		var (
			fields = strings.Fields(line)
			nType  int
			nv     int
		)
		if len(fields) == 0 {
			return nil, fmt.Errorf("empty element line %d", k)
		}
		if _, err = fmt.Sscanf(fields[0], "%d", &nType); err != nil {
			return nil, fmt.Errorf("element line [%s]: %w", line, err)
		}
		switch SU2ElementType(nType) {
		case ELType_Triangle:
			elems[k].Kind, nv = geometry2D.Triangle, 3
		case ELType_Quadrilateral:
			elems[k].Kind, nv = geometry2D.Quadrilateral, 4
		default:
			return nil, fmt.Errorf("element %d: unsupported SU2 element type %d", k, nType)
		}
		if len(fields) < nv+1 {
			return nil, fmt.Errorf("element %d: need %d vertices in [%s]", k, nv, line)
		}
		elems[k].Verts = make([]int, nv)
		for i := 0; i < nv; i++ {
			if _, err = fmt.Sscanf(fields[i+1], "%d", &elems[k].Verts[i]); err != nil {
				return nil, fmt.Errorf("element %d: %w", k, err)
			}
		}
	}
	return
}

func getToken(reader *bufio.Reader) (token string, err error) {
	var (
		line string
	)
	if line, err = getLineNoComments(reader); err != nil {
		return
	}
	ind := strings.Index(line, "=")
	if ind < 0 {
		err = fmt.Errorf("badly formed input line [%s], should have an =", line)
		return
	}
	token = line[ind+1:]
	return
}

func readLabel(reader *bufio.Reader) (label string, err error) {
	var (
		token string
	)
	if token, err = getToken(reader); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%s", &label); err != nil {
		err = fmt.Errorf("unable to read label from token: [%s]", token)
		return
	}
	label = strings.Trim(label, " ")
	return
}

func readNumber(reader *bufio.Reader) (num int, err error) {
	var (
		token string
	)
	if token, err = getToken(reader); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%d", &num); err != nil {
		err = fmt.Errorf("unable to read number from token: [%s]", token)
	}
	return
}

func getLineNoComments(reader *bufio.Reader) (line string, err error) {
	for {
		if line, err = getLine(reader); err != nil {
			return
		}
		line = strings.Trim(line, " ")
		if !strings.HasPrefix(line, "%") {
			return
		}
	}
}

func getLine(reader *bufio.Reader) (line string, err error) {
	line, err = reader.ReadString('\n')
	if err == io.EOF && len(line) != 0 {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("early end of file")
		}
		return
	}
	line = strings.TrimRight(line, "\r\n") // Strip away the newline
	return
}

func skipLines(n int, reader *bufio.Reader) (err error) {
	for i := 0; i < n; i++ {
		if _, err = getLine(reader); err != nil {
			return
		}
	}
	return
}
