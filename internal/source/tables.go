package source

import (
	"fmt"

	"trackgeo/internal/infra/tabledb"
)

// FromSetup converts stored legacy tables into a document. Rotations are
// named after their table id.
func FromSetup(s tabledb.Setup) (*Document, error) {
	doc := &Document{Name: s.Name}
	materials := make(map[int]string, len(s.Materials))
	for _, m := range s.Materials {
		materials[m.ID] = m.Name
		doc.Materials = append(doc.Materials, Material{
			Name: m.Name, A: m.A, Z: m.Z, Density: m.Density, RadLen: m.RadLen, AbsLen: m.AbsLen,
		})
	}
	media := make(map[int]string, len(s.Media))
	for _, m := range s.Media {
		mat, ok := materials[m.MaterialID]
		if !ok {
			return nil, fmt.Errorf("medium %s: %w material %d", m.Name, ErrUnknownReference, m.MaterialID)
		}
		media[m.ID] = m.Name
		p := m.Params
		doc.Media = append(doc.Media, Medium{
			Name: m.Name, Material: mat,
			IsVol: p.IsVol, IField: p.IField, FieldM: p.FieldM, TMaxFD: p.TMaxFD,
			MaxStep: p.SteMax, DeeMax: p.DeeMax, Epsil: p.Epsil, StMin: p.StMin,
		})
	}
	rotations := make(map[int]string, len(s.Rotations))
	for _, r := range s.Rotations {
		name := rotationName(r.ID)
		rotations[r.ID] = name
		doc.Rotations = append(doc.Rotations, Rotation{
			Name: name, Theta1: r.Theta1, Phi1: r.Phi1, Theta2: r.Theta2, Phi2: r.Phi2, Theta3: r.Theta3, Phi3: r.Phi3,
		})
	}
	for _, v := range s.Volumes {
		med, ok := media[v.MediumID]
		if !ok {
			return nil, fmt.Errorf("volume %s: %w medium %d", v.Name, ErrUnknownReference, v.MediumID)
		}
		doc.Volumes = append(doc.Volumes, Volume{Name: v.Name, Shape: v.Shape, Medium: med, Params: v.Params})
	}
	for _, p := range s.Positions {
		pos := Position{
			Volume: p.Volume,
			Mother: p.Mother,
			CopyNo: p.CopyNo,
			At:     []float64{p.X, p.Y, p.Z},
			Many:   !p.Only,
		}
		if p.RotationID != 0 {
			name, ok := rotations[p.RotationID]
			if !ok {
				return nil, fmt.Errorf("position %s: %w rotation %d", p.Volume, ErrUnknownReference, p.RotationID)
			}
			pos.Rotation = name
		}
		doc.Positions = append(doc.Positions, pos)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ToSetup converts a document into legacy tables. Assemblies have no legacy
// representation.
func ToSetup(doc *Document) (tabledb.Setup, error) {
	s := tabledb.Setup{Name: doc.Name}
	materials := make(map[string]int, len(doc.Materials))
	for i, m := range doc.Materials {
		materials[m.Name] = i + 1
		s.Materials = append(s.Materials, tabledb.Material{
			ID: i + 1, Name: m.Name, A: m.A, Z: m.Z, Density: m.Density, RadLen: m.RadLen, AbsLen: m.AbsLen,
		})
	}
	media := make(map[string]int, len(doc.Media))
	for i, m := range doc.Media {
		matID, ok := materials[m.Material]
		if !ok {
			return tabledb.Setup{}, fmt.Errorf("medium %s: %w material %s", m.Name, ErrUnknownReference, m.Material)
		}
		media[m.Name] = i + 1
		s.Media = append(s.Media, tabledb.Medium{ID: i + 1, Name: m.Name, MaterialID: matID, Params: m.Params()})
	}
	rotations := make(map[string]int, len(doc.Rotations))
	for i, r := range doc.Rotations {
		rotations[r.Name] = i + 1
		s.Rotations = append(s.Rotations, tabledb.Rotation{
			ID: i + 1, Theta1: r.Theta1, Phi1: r.Phi1, Theta2: r.Theta2, Phi2: r.Phi2, Theta3: r.Theta3, Phi3: r.Phi3,
		})
	}
	for i, v := range doc.Volumes {
		if v.Assembly {
			return tabledb.Setup{}, fmt.Errorf("volume %s: %w", v.Name, ErrAssembly)
		}
		medID, ok := media[v.Medium]
		if !ok {
			return tabledb.Setup{}, fmt.Errorf("volume %s: %w medium %s", v.Name, ErrUnknownReference, v.Medium)
		}
		s.Volumes = append(s.Volumes, tabledb.Volume{ID: i + 1, Name: v.Name, Shape: v.Shape, MediumID: medID, Params: v.Params})
	}
	for i, p := range doc.Positions {
		at := p.translation()
		row := tabledb.Position{
			Seq:    i + 1,
			Volume: p.Volume,
			CopyNo: p.CopyNo,
			Mother: p.Mother,
			X:      at.X,
			Y:      at.Y,
			Z:      at.Z,
			Only:   !p.Many,
		}
		if p.Rotation != "" {
			id, ok := rotations[p.Rotation]
			if !ok {
				return tabledb.Setup{}, fmt.Errorf("position %s: %w rotation %s", p.Volume, ErrUnknownReference, p.Rotation)
			}
			row.RotationID = id
		}
		s.Positions = append(s.Positions, row)
	}
	return s, nil
}

func rotationName(id int) string { return fmt.Sprintf("rot%d", id) }
