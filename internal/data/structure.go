package data

import (
	"fmt"
	"strconv"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/ir"
)

// Structure is an atomic structure node.
//
// Attributes:
//
//	cell              3×3 array, rows are lattice vectors
//	pbc1, pbc2, pbc3  periodicity along each lattice vector
//	kinds             [{name, symbols, weights, mass}]
//	sites             [{kind_name, position}]
//
// Atoms sharing a symbol but not a mass get distinct kinds ("H", "H1", ...).
type Structure struct{ Node }

// NewStructure returns an unstored Structure describing a.
// The node keeps no reference to a.
func NewStructure(a *atoms.Atoms) *Structure {
	return &Structure{Node: newNode(ir.NodeStructure, structureAttributes(a))}
}

func structureAttributes(a *atoms.Atoms) ir.IRObject {
	cell := a.Cell()
	pbc := a.PBC()

	type kindKey struct {
		symbol string
		mass   float64
	}
	kindNames := map[kindKey]string{}
	usedNames := map[string]bool{}
	kinds := ir.IRArray{}
	sites := ir.IRArray{}

	symbols := a.Symbols()
	masses := a.Masses()
	positions := a.Positions()
	for i, sym := range symbols {
		key := kindKey{sym, masses[i]}
		name, ok := kindNames[key]
		if !ok {
			name = sym
			for n := 1; usedNames[name]; n++ {
				name = sym + strconv.Itoa(n)
			}
			usedNames[name] = true
			kindNames[key] = name
			kinds = append(kinds, ir.IRObject{
				"name":    ir.IRString(name),
				"symbols": ir.IRArray{ir.IRString(sym)},
				"weights": ir.IRArray{ir.IRFloat(1)},
				"mass":    ir.IRFloat(masses[i]),
			})
		}
		sites = append(sites, ir.IRObject{
			"kind_name": ir.IRString(name),
			"position":  ir.FloatArray(positions[i][:]),
		})
	}

	return ir.IRObject{
		"cell": ir.IRArray{
			ir.FloatArray(cell[0][:]),
			ir.FloatArray(cell[1][:]),
			ir.FloatArray(cell[2][:]),
		},
		"pbc1":  ir.IRBool(pbc[0]),
		"pbc2":  ir.IRBool(pbc[1]),
		"pbc3":  ir.IRBool(pbc[2]),
		"kinds": kinds,
		"sites": sites,
	}
}

// Atoms returns a fresh Atoms value decoded from the attributes.
// Every call returns a new, independent value.
func (s *Structure) Atoms() (*atoms.Atoms, error) {
	cell, err := vectors3(s.attrs["cell"], 3)
	if err != nil {
		return nil, fmt.Errorf("cell: %w", err)
	}

	type kind struct {
		symbol string
		mass   float64
	}
	kindsByName := map[string]kind{}
	rawKinds, _ := s.attrs["kinds"].(ir.IRArray)
	for i, raw := range rawKinds {
		obj, ok := raw.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("%w: kinds[%d] is %T", ErrInvalidAttributes, i, raw)
		}
		name, _ := obj["name"].(ir.IRString)
		syms, _ := obj["symbols"].(ir.IRArray)
		if len(syms) != 1 {
			return nil, fmt.Errorf("%w: kind %q must have exactly one symbol", ErrInvalidAttributes, name)
		}
		sym, _ := syms[0].(ir.IRString)
		mass, err := floats(ir.IRArray{obj["mass"]})
		if err != nil {
			return nil, fmt.Errorf("kind %q mass: %w", name, err)
		}
		kindsByName[string(name)] = kind{symbol: string(sym), mass: mass[0]}
	}

	rawSites, _ := s.attrs["sites"].(ir.IRArray)
	symbols := make([]string, len(rawSites))
	masses := make([]float64, len(rawSites))
	positions := make([]atoms.Vec3, len(rawSites))
	explicitMasses := false
	for i, raw := range rawSites {
		obj, ok := raw.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("%w: sites[%d] is %T", ErrInvalidAttributes, i, raw)
		}
		name, _ := obj["kind_name"].(ir.IRString)
		k, ok := kindsByName[string(name)]
		if !ok {
			return nil, fmt.Errorf("%w: sites[%d] refers to unknown kind %q", ErrInvalidAttributes, i, name)
		}
		pos, err := vectors3(ir.IRArray{obj["position"]}, 1)
		if err != nil {
			return nil, fmt.Errorf("sites[%d]: %w", i, err)
		}
		symbols[i] = k.symbol
		masses[i] = k.mass
		positions[i] = pos[0]

		z, err := atoms.AtomicNumber(k.symbol)
		if err != nil {
			return nil, err
		}
		if def, _ := atoms.DefaultMass(z); def != k.mass {
			explicitMasses = true
		}
	}

	pbc := [3]bool{}
	for k, key := range []string{"pbc1", "pbc2", "pbc3"} {
		b, _ := s.attrs[key].(ir.IRBool)
		pbc[k] = bool(b)
	}

	opts := []atoms.Option{
		atoms.WithCell(atoms.Mat3{cell[0], cell[1], cell[2]}),
		atoms.WithPBC(pbc),
	}
	if explicitMasses {
		opts = append(opts, atoms.WithMasses(masses))
	}
	return atoms.New(symbols, positions, opts...)
}

// Formula returns the chemical formula, or "" if the attributes are invalid.
func (s *Structure) Formula() string {
	a, err := s.Atoms()
	if err != nil {
		return ""
	}
	return a.Formula()
}

// vectors3 decodes an IRArray of n three-component numeric arrays.
func vectors3(v ir.IRValue, n int) ([]atoms.Vec3, error) {
	arr, ok := v.(ir.IRArray)
	if !ok || len(arr) != n {
		return nil, fmt.Errorf("%w: want %d vectors, got %v", ErrInvalidAttributes, n, v)
	}
	out := make([]atoms.Vec3, n)
	for i, row := range arr {
		rowArr, _ := row.(ir.IRArray)
		if len(rowArr) != 3 {
			return nil, fmt.Errorf("%w: vector %d needs 3 components", ErrInvalidAttributes, i)
		}
		f, err := floats(rowArr)
		if err != nil {
			return nil, err
		}
		out[i] = atoms.Vec3{f[0], f[1], f[2]}
	}
	return out, nil
}
