package tabledb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trackgeo/internal/mcgeom"
)

// Material is a stored material row.
type Material struct {
	ID      int
	Name    string
	A       float64
	Z       float64
	Density float64
	RadLen  float64
	AbsLen  float64
}

// Medium is a stored tracking medium row.
type Medium struct {
	ID         int
	Name       string
	MaterialID int
	Params     mcgeom.MediumParams
}

// Rotation is a stored rotation matrix given by its axis angles (degrees).
type Rotation struct {
	ID     int
	Theta1 float64
	Phi1   float64
	Theta2 float64
	Phi2   float64
	Theta3 float64
	Phi3   float64
}

// Volume is a stored volume row.
type Volume struct {
	ID       int
	Name     string
	Shape    string
	MediumID int
	Params   []float64
}

// Position is a stored placement; Seq keeps the definition order.
type Position struct {
	Seq        int
	Volume     string
	CopyNo     int
	Mother     string
	X, Y, Z    float64
	RotationID int
	Only       bool
}

// Setup is one complete legacy definition. Rows are kept in ID order.
type Setup struct {
	Name      string
	Materials []Material
	Media     []Medium
	Rotations []Rotation
	Volumes   []Volume
	Positions []Position
}

var setupTables = []string{"positions", "volumes", "rotations", "media", "materials"}

// Save replaces the rows of setup.Name in one transaction.
func (t *DB) Save(ctx context.Context, s Setup) (err error) {
	if s.Name == "" {
		return fmt.Errorf("setup name required")
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range setupTables {
		if _, err = tx.ExecContext(ctx, t.rebind("DELETE FROM "+table+" WHERE setup = ?"), s.Name); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, m := range s.Materials {
		if _, err = tx.ExecContext(ctx, t.rebind(`INSERT INTO materials
			(setup, id, name, a, z, density, rad_len, abs_len) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			s.Name, m.ID, m.Name, m.A, m.Z, m.Density, m.RadLen, m.AbsLen); err != nil {
			return fmt.Errorf("insert material %s: %w", m.Name, err)
		}
	}
	for _, m := range s.Media {
		p := m.Params
		if _, err = tx.ExecContext(ctx, t.rebind(`INSERT INTO media
			(setup, id, name, material_id, is_vol, ifield, fieldm, tmaxfd, stemax, deemax, epsil, stmin)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			s.Name, m.ID, m.Name, m.MaterialID, p.IsVol, p.IField, p.FieldM, p.TMaxFD, p.SteMax, p.DeeMax, p.Epsil, p.StMin); err != nil {
			return fmt.Errorf("insert medium %s: %w", m.Name, err)
		}
	}
	for _, r := range s.Rotations {
		if _, err = tx.ExecContext(ctx, t.rebind(`INSERT INTO rotations
			(setup, id, theta1, phi1, theta2, phi2, theta3, phi3) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			s.Name, r.ID, r.Theta1, r.Phi1, r.Theta2, r.Phi2, r.Theta3, r.Phi3); err != nil {
			return fmt.Errorf("insert rotation %d: %w", r.ID, err)
		}
	}
	for _, v := range s.Volumes {
		params, merr := json.Marshal(v.Params)
		if merr != nil {
			err = merr
			return fmt.Errorf("encode params of %s: %w", v.Name, err)
		}
		if _, err = tx.ExecContext(ctx, t.rebind(`INSERT INTO volumes
			(setup, id, name, shape, medium_id, params) VALUES (?, ?, ?, ?, ?, ?)`),
			s.Name, v.ID, v.Name, v.Shape, v.MediumID, string(params)); err != nil {
			return fmt.Errorf("insert volume %s: %w", v.Name, err)
		}
	}
	for i, p := range s.Positions {
		seq := p.Seq
		if seq == 0 {
			seq = i + 1
		}
		if _, err = tx.ExecContext(ctx, t.rebind(`INSERT INTO positions
			(setup, seq, volume, copy_no, mother, x, y, z, rotation_id, only_flag) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			s.Name, seq, p.Volume, p.CopyNo, p.Mother, p.X, p.Y, p.Z, p.RotationID, boolToInt(p.Only)); err != nil {
			return fmt.Errorf("insert position %s in %s: %w", p.Volume, p.Mother, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads the named setup.
func (t *DB) Load(ctx context.Context, name string) (Setup, error) {
	s := Setup{Name: name}
	err := t.query(ctx, `SELECT id, name, a, z, density, rad_len, abs_len FROM materials WHERE setup = ? ORDER BY id`, name,
		func(rows *sql.Rows) error {
			var m Material
			if err := rows.Scan(&m.ID, &m.Name, &m.A, &m.Z, &m.Density, &m.RadLen, &m.AbsLen); err != nil {
				return err
			}
			s.Materials = append(s.Materials, m)
			return nil
		})
	if err != nil {
		return Setup{}, err
	}
	err = t.query(ctx, `SELECT id, name, material_id, is_vol, ifield, fieldm, tmaxfd, stemax, deemax, epsil, stmin
		FROM media WHERE setup = ? ORDER BY id`, name,
		func(rows *sql.Rows) error {
			var m Medium
			p := &m.Params
			if err := rows.Scan(&m.ID, &m.Name, &m.MaterialID, &p.IsVol, &p.IField, &p.FieldM, &p.TMaxFD,
				&p.SteMax, &p.DeeMax, &p.Epsil, &p.StMin); err != nil {
				return err
			}
			s.Media = append(s.Media, m)
			return nil
		})
	if err != nil {
		return Setup{}, err
	}
	err = t.query(ctx, `SELECT id, theta1, phi1, theta2, phi2, theta3, phi3 FROM rotations WHERE setup = ? ORDER BY id`, name,
		func(rows *sql.Rows) error {
			var r Rotation
			if err := rows.Scan(&r.ID, &r.Theta1, &r.Phi1, &r.Theta2, &r.Phi2, &r.Theta3, &r.Phi3); err != nil {
				return err
			}
			s.Rotations = append(s.Rotations, r)
			return nil
		})
	if err != nil {
		return Setup{}, err
	}
	err = t.query(ctx, `SELECT id, name, shape, medium_id, params FROM volumes WHERE setup = ? ORDER BY id`, name,
		func(rows *sql.Rows) error {
			var (
				v      Volume
				params string
			)
			if err := rows.Scan(&v.ID, &v.Name, &v.Shape, &v.MediumID, &params); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(params), &v.Params); err != nil {
				return fmt.Errorf("decode params of %s: %w", v.Name, err)
			}
			s.Volumes = append(s.Volumes, v)
			return nil
		})
	if err != nil {
		return Setup{}, err
	}
	if len(s.Volumes) == 0 {
		return Setup{}, fmt.Errorf("%w: %s", ErrSetupNotFound, name)
	}
	err = t.query(ctx, `SELECT seq, volume, copy_no, mother, x, y, z, rotation_id, only_flag
		FROM positions WHERE setup = ? ORDER BY seq`, name,
		func(rows *sql.Rows) error {
			var (
				p    Position
				only int
			)
			if err := rows.Scan(&p.Seq, &p.Volume, &p.CopyNo, &p.Mother, &p.X, &p.Y, &p.Z, &p.RotationID, &only); err != nil {
				return err
			}
			p.Only = only != 0
			s.Positions = append(s.Positions, p)
			return nil
		})
	if err != nil {
		return Setup{}, err
	}
	return s, nil
}

// Setups lists the stored setup names.
func (t *DB) Setups(ctx context.Context) ([]string, error) {
	var names []string
	err := t.query(ctx, `SELECT DISTINCT setup FROM volumes WHERE setup <> ? ORDER BY setup`, "",
		func(rows *sql.Rows) error {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			names = append(names, n)
			return nil
		})
	return names, err
}

func (t *DB) query(ctx context.Context, query, setup string, scan func(*sql.Rows) error) error {
	rows, err := t.db.QueryContext(ctx, t.rebind(query), setup)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
