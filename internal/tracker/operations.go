package tracker

import (
	"sort"

	"github.com/roach88/atomtrack/internal/atoms"
)

// Kind says how an operation treats its receiver.
type Kind int

const (
	// InPlace operations mutate the tracker's structure and return the same tracker.
	InPlace Kind = iota
	// OutOfPlace operations return a new tracker and leave the receiver untouched.
	OutOfPlace
)

func (k Kind) String() string {
	if k == OutOfPlace {
		return "out-of-place"
	}
	return "in-place"
}

// operation is one entry of the dispatch table. Exactly one of mutate and
// derive is set, matching kind.
type operation struct {
	kind     Kind
	params   []string
	required []string
	mutate   func(a *atoms.Atoms, b args) error
	derive   func(a *atoms.Atoms, b args) (*atoms.Atoms, error)
}

type (
	setCellArgs struct {
		Cell       atoms.Mat3 `arg:"cell"`
		ScaleAtoms bool       `arg:"scale_atoms"`
	}
	setPositionsArgs struct {
		Positions []atoms.Vec3 `arg:"newpositions"`
	}
	setPBCArgs struct {
		PBC flags `arg:"pbc"`
	}
	setNumbersArgs struct {
		Numbers []int `arg:"numbers"`
	}
	setSymbolsArgs struct {
		Symbols []string `arg:"symbols"`
	}
	setMassesArgs struct {
		Masses []float64 `arg:"masses"`
	}
	indexArgs struct {
		I int `arg:"i"`
	}
	translateArgs struct {
		Displacement displacement `arg:"displacement"`
	}
	centerArgs struct {
		Vacuum *float64    `arg:"vacuum"`
		Axis   []int       `arg:"axis"`
		About  *atoms.Vec3 `arg:"about"`
	}
	setCOMArgs struct {
		COM    atoms.Vec3 `arg:"com"`
		Scaled bool       `arg:"scaled"`
	}
	rotateArgs struct {
		A          any             `arg:"a"`
		V          any             `arg:"v"`
		Center     atoms.Centering `arg:"center"`
		RotateCell bool            `arg:"rotate_cell"`
	}
	eulerArgs struct {
		Phi    float64         `arg:"phi"`
		Theta  float64         `arg:"theta"`
		Psi    float64         `arg:"psi"`
		Center atoms.Centering `arg:"center"`
	}
	dihedralArgs struct {
		A1        int     `arg:"a1"`
		A2        int     `arg:"a2"`
		A3        int     `arg:"a3"`
		A4        int     `arg:"a4"`
		Angle     float64 `arg:"angle"`
		selection `arg:",squash"`
	}
	setAngleArgs struct {
		A1        int     `arg:"a1"`
		A2        int     `arg:"a2"`
		A3        int     `arg:"a3"`
		Angle     float64 `arg:"angle"`
		Add       bool    `arg:"add"`
		selection `arg:",squash"`
	}
	rattleArgs struct {
		Stdev float64 `arg:"stdev"`
		Seed  int     `arg:"seed"`
	}
	setDistanceArgs struct {
		A0        int     `arg:"a0"`
		A1        int     `arg:"a1"`
		Distance  float64 `arg:"distance"`
		Fix       float64 `arg:"fix"`
		MIC       bool    `arg:"mic"`
		Add       bool    `arg:"add"`
		Factor    bool    `arg:"factor"`
		selection `arg:",squash"`
	}
	setScaledArgs struct {
		Scaled []atoms.Vec3 `arg:"scaled"`
	}
	wrapArgs struct {
		PBC    *flags     `arg:"pbc"`
		Center atoms.Vec3 `arg:"center"`
		Eps    float64    `arg:"eps"`
	}
	indexerArgs struct {
		I indexer `arg:"i"`
	}
	repeatArgs struct {
		M triple `arg:"m"`
	}
	repArgs struct {
		Rep triple `arg:"rep"`
	}
)

func origin() atoms.Centering { return atoms.At(atoms.Vec3{}) }

// operations maps every tracked operation name to its implementation.
var operations = map[string]operation{
	"set_cell": {
		kind:     InPlace,
		params:   []string{"cell", "scale_atoms"},
		required: []string{"cell"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setCellArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetCell(p.Cell, p.ScaleAtoms)
		},
	},
	"set_positions": {
		kind:     InPlace,
		params:   []string{"newpositions"},
		required: []string{"newpositions"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setPositionsArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetPositions(p.Positions)
		},
	},
	"set_pbc": {
		kind:     InPlace,
		params:   []string{"pbc"},
		required: []string{"pbc"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setPBCArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			a.SetPBC(p.PBC)
			return nil
		},
	},
	"set_atomic_numbers": {
		kind:     InPlace,
		params:   []string{"numbers"},
		required: []string{"numbers"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setNumbersArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetAtomicNumbers(p.Numbers)
		},
	},
	"set_chemical_symbols": {
		kind:     InPlace,
		params:   []string{"symbols"},
		required: []string{"symbols"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setSymbolsArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetChemicalSymbols(p.Symbols)
		},
	},
	"set_masses": {
		kind:   InPlace,
		params: []string{"masses"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setMassesArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetMasses(p.Masses)
		},
	},
	"pop": {
		kind:   InPlace,
		params: []string{"i"},
		mutate: func(a *atoms.Atoms, b args) error {
			p := indexArgs{I: -1}
			if err := b.decode(&p); err != nil {
				return err
			}
			_, err := a.Pop(p.I)
			return err
		},
	},
	"translate": {
		kind:     InPlace,
		params:   []string{"displacement"},
		required: []string{"displacement"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p translateArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			if d := p.Displacement; d.all != nil {
				a.Translate(*d.all)
				return nil
			}
			return a.TranslateEach(p.Displacement.each)
		},
	},
	"center": {
		kind:   InPlace,
		params: []string{"vacuum", "axis", "about"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p centerArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.Center(atoms.CenterOptions{Vacuum: p.Vacuum, Axes: p.Axis, About: p.About})
		},
	},
	"set_center_of_mass": {
		kind:     InPlace,
		params:   []string{"com", "scaled"},
		required: []string{"com"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setCOMArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetCenterOfMass(p.COM, p.Scaled)
		},
	},
	"rotate": {
		kind:     InPlace,
		params:   []string{"a", "v", "center", "rotate_cell"},
		required: []string{"a", "v"},
		mutate: func(a *atoms.Atoms, b args) error {
			p := rotateArgs{Center: origin()}
			if err := b.decode(&p); err != nil {
				return err
			}
			return rotate(a, b, p)
		},
	},
	"euler_rotate": {
		kind:   InPlace,
		params: []string{"phi", "theta", "psi", "center"},
		mutate: func(a *atoms.Atoms, b args) error {
			p := eulerArgs{Center: origin()}
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.EulerRotate(p.Phi, p.Theta, p.Psi, p.Center)
		},
	},
	"set_dihedral": {
		kind:     InPlace,
		params:   []string{"a1", "a2", "a3", "a4", "angle", "mask", "indices"},
		required: []string{"a1", "a2", "a3", "a4", "angle"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p dihedralArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetDihedral(p.A1, p.A2, p.A3, p.A4, p.Angle, p.value())
		},
	},
	"rotate_dihedral": {
		kind:     InPlace,
		params:   []string{"a1", "a2", "a3", "a4", "angle", "mask", "indices"},
		required: []string{"a1", "a2", "a3", "a4", "angle"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p dihedralArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.RotateDihedral(p.A1, p.A2, p.A3, p.A4, p.Angle, p.value())
		},
	},
	"set_angle": {
		kind:     InPlace,
		params:   []string{"a1", "a2", "a3", "angle", "mask", "indices", "add"},
		required: []string{"a1", "a2", "a3", "angle"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setAngleArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetAngle(p.A1, p.A2, p.A3, p.Angle, p.value(), p.Add)
		},
	},
	"rattle": {
		kind:   InPlace,
		params: []string{"stdev", "seed"},
		mutate: func(a *atoms.Atoms, b args) error {
			p := rattleArgs{Stdev: 0.001, Seed: 42}
			if err := b.decode(&p); err != nil {
				return err
			}
			a.Rattle(p.Stdev, uint64(p.Seed))
			return nil
		},
	},
	"set_distance": {
		kind:     InPlace,
		params:   []string{"a0", "a1", "distance", "fix", "mic", "mask", "indices", "add", "factor"},
		required: []string{"a0", "a1", "distance"},
		mutate: func(a *atoms.Atoms, b args) error {
			p := setDistanceArgs{Fix: atoms.DefaultDistanceOptions().Fix}
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetDistance(p.A0, p.A1, p.Distance, atoms.DistanceOptions{
				Fix:       p.Fix,
				MIC:       p.MIC,
				Selection: p.value(),
				Add:       p.Add,
				Factor:    p.Factor,
			})
		},
	},
	"set_scaled_positions": {
		kind:     InPlace,
		params:   []string{"scaled"},
		required: []string{"scaled"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p setScaledArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.SetScaledPositions(p.Scaled)
		},
	},
	"wrap": {
		kind:   InPlace,
		params: []string{"pbc", "center", "eps"},
		mutate: func(a *atoms.Atoms, b args) error {
			def := atoms.DefaultWrapOptions()
			p := wrapArgs{Center: def.Center, Eps: def.Eps}
			if err := b.decode(&p); err != nil {
				return err
			}
			opts := atoms.WrapOptions{Center: p.Center, Eps: p.Eps}
			if p.PBC != nil {
				pbc := [3]bool(*p.PBC)
				opts.PBC = &pbc
			}
			return a.Wrap(opts)
		},
	},
	"delete_item": {
		kind:     InPlace,
		params:   []string{"i"},
		required: []string{"i"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p indexerArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			idx, err := p.I.resolve(a.Len())
			if err != nil {
				return err
			}
			return a.Delete(idx)
		},
	},
	"repeat_in_place": {
		kind:     InPlace,
		params:   []string{"m"},
		required: []string{"m"},
		mutate: func(a *atoms.Atoms, b args) error {
			var p repeatArgs
			if err := b.decode(&p); err != nil {
				return err
			}
			return a.RepeatInPlace(p.M)
		},
	},
	"repeat": {
		kind:     OutOfPlace,
		params:   []string{"rep"},
		required: []string{"rep"},
		derive: func(a *atoms.Atoms, b args) (*atoms.Atoms, error) {
			var p repArgs
			if err := b.decode(&p); err != nil {
				return nil, err
			}
			return a.Repeat(p.Rep)
		},
	},
	"index_access": {
		kind:     OutOfPlace,
		params:   []string{"i"},
		required: []string{"i"},
		derive: func(a *atoms.Atoms, b args) (*atoms.Atoms, error) {
			var p indexerArgs
			if err := b.decode(&p); err != nil {
				return nil, err
			}
			idx, err := p.I.resolve(a.Len())
			if err != nil {
				return nil, err
			}
			return a.Select(idx)
		},
	},
	"replicate": {
		kind:     OutOfPlace,
		params:   []string{"m"},
		required: []string{"m"},
		derive: func(a *atoms.Atoms, b args) (*atoms.Atoms, error) {
			var p repeatArgs
			if err := b.decode(&p); err != nil {
				return nil, err
			}
			return a.Repeat(p.M)
		},
	},
}

// rotate takes either an angle and an axis, in any order, or two vectors,
// in which case the first is rotated onto the second.
func rotate(a *atoms.Atoms, b args, p rotateArgs) error {
	opts := atoms.RotateOptions{Center: p.Center, RotateCell: p.RotateCell}
	var angle float64
	if decodeValue(p.A, &angle) != nil {
		p.A, p.V = p.V, p.A
	}
	var v direction
	if err := decodeValue(p.V, &v); err != nil {
		return b.invalid(err)
	}
	if err := decodeValue(p.A, &angle); err == nil {
		return a.Rotate(angle, atoms.Vec3(v), opts)
	}
	var to direction
	if err := decodeValue(p.A, &to); err != nil {
		return b.invalid(err)
	}
	return a.RotateVector(atoms.Vec3(v), atoms.Vec3(to), opts)
}

// OperationInfo describes one tracked operation.
type OperationInfo struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Params []string `json:"params"`
}

// Operations lists every tracked operation, in-place first, each group
// sorted by name.
func Operations() []OperationInfo {
	out := make([]OperationInfo, 0, len(operations))
	for name, op := range operations {
		out = append(out, OperationInfo{Name: name, Kind: op.kind.String(), Params: op.params})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == InPlace.String()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup reports the kind of the named operation.
func Lookup(name string) (Kind, bool) {
	op, ok := operations[name]
	return op.kind, ok
}
