package InputParameters

import (
	"fmt"
	"io"
	"strings"

	"github.com/ghodss/yaml"
)

// MeshParameters describes how one side of the transfer is built.
type MeshParameters struct {
	Generator string     `json:"Generator"` // rectangle, trapezoid, delaunay or su2
	Kind      string     `json:"Kind"`      // triangle or quadrilateral
	NX        int        `json:"NX"`
	NY        int        `json:"NY"`
	Box       [4]float64 `json:"Box"` // xmin, ymin, xmax, ymax
	Offset    float64    `json:"Offset"`
	Refine    int        `json:"Refine"`
	Points    int        `json:"Points"` // approximate point count for delaunay
	Seed      int64      `json:"Seed"`
	File      string     `json:"File"`
	Order     int        `json:"Order"` // 0 = piecewise constant, 1 = continuous linear
}

// TransferParameters are obtained from the YAML input file
type TransferParameters struct {
	Title         string         `json:"Title"`
	Master        MeshParameters `json:"Master"`
	Slave         MeshParameters `json:"Slave"`
	Field         string         `json:"Field"` // constant, linear, quadratic or sine
	VDim          int            `json:"VDim"`
	VectorKernel  bool           `json:"VectorKernel"`
	Ordering      string         `json:"Ordering"` // byNODES or byVDIM
	Partitioner   string         `json:"Partitioner"`
	Processes     int            `json:"Processes"`
	Tolerance     float64        `json:"Tolerance"`
	MaxIterations int            `json:"MaxIterations"`
	Verbose       bool           `json:"Verbose"`
}

// NewTransferParameters returns the defaults: a 4x4 quadrilateral master on
// the unit square and a trapezoid slave, as in the classic mortar demo.
func NewTransferParameters() *TransferParameters {
	return &TransferParameters{
		Title: "Mortar transfer",
		Master: MeshParameters{
			Generator: "rectangle", Kind: "quadrilateral",
			NX: 4, NY: 4, Box: [4]float64{0, 0, 1, 1}, Order: 1,
		},
		Slave: MeshParameters{
			Generator: "trapezoid", Kind: "triangle",
			Offset: 0.25, Refine: 3, Order: 1,
		},
		Field:         "linear",
		VDim:          1,
		Ordering:      "byNODES",
		Partitioner:   "rcb",
		Processes:     2,
		Tolerance:     1.e-12,
		MaxIterations: 1000,
	}
}

// Parse overlays the YAML document on the receiver, so fields missing from
// data keep their current values.
func (tp *TransferParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, tp)
}

func (mp *MeshParameters) Validate(side string) (err error) {
	switch strings.ToLower(mp.Generator) {
	case "rectangle":
		if mp.NX < 1 || mp.NY < 1 {
			return fmt.Errorf("%s: rectangle needs NX, NY >= 1", side)
		}
		if mp.Box[2] <= mp.Box[0] || mp.Box[3] <= mp.Box[1] {
			return fmt.Errorf("%s: empty box %v", side, mp.Box)
		}
	case "trapezoid":
		if mp.Offset >= 0.9 {
			return fmt.Errorf("%s: trapezoid offset %g must be < 0.9", side, mp.Offset)
		}
	case "delaunay":
		if mp.Points < 2 {
			return fmt.Errorf("%s: delaunay needs Points >= 2", side)
		}
	case "su2":
		if mp.File == "" {
			return fmt.Errorf("%s: su2 needs a File", side)
		}
	default:
		return fmt.Errorf("%s: unknown generator %q", side, mp.Generator)
	}
	switch strings.ToLower(mp.Kind) {
	case "triangle", "quadrilateral", "":
	default:
		return fmt.Errorf("%s: unknown element kind %q", side, mp.Kind)
	}
	if mp.Order < 0 || mp.Order > 1 {
		return fmt.Errorf("%s: order %d not supported, use 0 or 1", side, mp.Order)
	}
	if mp.Refine < 0 {
		return fmt.Errorf("%s: negative refinement %d", side, mp.Refine)
	}
	return
}

func (tp *TransferParameters) Validate() (err error) {
	if err = tp.Master.Validate("Master"); err != nil {
		return
	}
	if err = tp.Slave.Validate("Slave"); err != nil {
		return
	}
	switch tp.Field {
	case "constant", "linear", "quadratic", "sine":
	default:
		return fmt.Errorf("unknown field %q", tp.Field)
	}
	switch tp.Ordering {
	case "byNODES", "byVDIM":
	default:
		return fmt.Errorf("unknown ordering %q", tp.Ordering)
	}
	if tp.VDim < 1 {
		return fmt.Errorf("VDim must be >= 1, have %d", tp.VDim)
	}
	if tp.Processes < 1 {
		return fmt.Errorf("Processes must be >= 1, have %d", tp.Processes)
	}
	if tp.Tolerance <= 0 || tp.MaxIterations < 1 {
		return fmt.Errorf("solver needs Tolerance > 0 and MaxIterations >= 1")
	}
	return
}

func (mp *MeshParameters) String() string {
	switch strings.ToLower(mp.Generator) {
	case "rectangle":
		return fmt.Sprintf("%s %dx%d %v P%d", mp.Kind, mp.NX, mp.NY, mp.Box, mp.Order)
	case "trapezoid":
		return fmt.Sprintf("%s trapezoid offset %g refined %d P%d", mp.Kind, mp.Offset, mp.Refine, mp.Order)
	case "delaunay":
		return fmt.Sprintf("delaunay %d points seed %d P%d", mp.Points, mp.Seed, mp.Order)
	}
	return fmt.Sprintf("%s %s P%d", mp.Generator, mp.File, mp.Order)
}

func (tp *TransferParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", tp.Title)
	fmt.Fprintf(w, "[%s]\t= Master\n", tp.Master.String())
	fmt.Fprintf(w, "[%s]\t= Slave\n", tp.Slave.String())
	fmt.Fprintf(w, "[%s]\t\t\t= Field\n", tp.Field)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Vector Dimension\n", tp.VDim)
	fmt.Fprintf(w, "[%s]\t\t\t= Ordering\n", tp.Ordering)
	fmt.Fprintf(w, "[%s]\t\t\t= Partitioner\n", tp.Partitioner)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Processes\n", tp.Processes)
	fmt.Fprintf(w, "%8.2e\t\t= Tolerance\n", tp.Tolerance)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Max Iterations\n", tp.MaxIterations)
}
