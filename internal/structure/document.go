package structure

import (
	"github.com/go-playground/validator/v10"

	"github.com/roach88/atomtrack/internal/atoms"
)

// Document is the decoded form of a structure document.
type Document struct {
	Label     string      `json:"label,omitempty" yaml:"label,omitempty"`
	Symbols   []string    `json:"symbols" yaml:"symbols" validate:"required,min=1,dive,required"`
	Positions [][]float64 `json:"positions" yaml:"positions" validate:"required,dive,len=3"`
	Cell      []float64   `json:"cell,omitempty" yaml:"cell,omitempty,flow"`
	PBC       []bool      `json:"pbc,omitempty" yaml:"pbc,omitempty,flow" validate:"omitempty,len=3"`
	Masses    []float64   `json:"masses,omitempty" yaml:"masses,omitempty,flow" validate:"omitempty,dive,gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		d := sl.Current().Interface().(Document)
		if len(d.Positions) != len(d.Symbols) {
			sl.ReportError(d.Positions, "Positions", "positions", "eqlen_symbols", "")
		}
		if d.Masses != nil && len(d.Masses) != len(d.Symbols) {
			sl.ReportError(d.Masses, "Masses", "masses", "eqlen_symbols", "")
		}
	}, Document{})
	return v
}

// Validate checks the relations between fields.
func (d Document) Validate() error {
	return validate.Struct(d)
}

// Atoms builds the structure described by d.
func (d Document) Atoms() (*atoms.Atoms, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	positions := make([]atoms.Vec3, len(d.Positions))
	for i, p := range d.Positions {
		positions[i] = atoms.Vec3{p[0], p[1], p[2]}
	}

	var opts []atoms.Option
	if d.Cell != nil {
		cell, err := atoms.ParseCell(d.Cell)
		if err != nil {
			return nil, err
		}
		opts = append(opts, atoms.WithCell(cell))
	}
	if d.PBC != nil {
		opts = append(opts, atoms.WithPBC([3]bool{d.PBC[0], d.PBC[1], d.PBC[2]}))
	}
	if d.Masses != nil {
		opts = append(opts, atoms.WithMasses(d.Masses))
	}
	return atoms.New(d.Symbols, positions, opts...)
}

// FromAtoms describes a. The cell is written as 9 numbers; masses are only
// written when they were set explicitly.
func FromAtoms(a *atoms.Atoms) Document {
	d := Document{
		Symbols:   a.Symbols(),
		Positions: make([][]float64, a.Len()),
	}
	for i, p := range a.Positions() {
		d.Positions[i] = []float64{p[0], p[1], p[2]}
	}
	cell := a.Cell()
	d.Cell = make([]float64, 0, 9)
	for _, row := range cell {
		d.Cell = append(d.Cell, row[:]...)
	}
	pbc := a.PBC()
	d.PBC = pbc[:]
	if a.HasExplicitMasses() {
		d.Masses = a.Masses()
	}
	return d
}
