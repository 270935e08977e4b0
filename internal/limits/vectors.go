package limits

import (
	"fmt"
	"strings"
)

// Cut indexes the legacy energy-cut vector.
type Cut int

const (
	CutGamma Cut = iota
	CutElectron
	CutNeutralHadron
	CutChargedHadron
	CutMuon
	BremCutElectron
	BremCutMuon
	DeltaCutElectron
	DeltaCutMuon
	PairCutMuon
	TimeOfFlightMax
	NofCuts
)

var cutNames = [NofCuts]string{
	"CUTGAM", "CUTELE", "CUTNEU", "CUTHAD", "CUTMUO",
	"BCUTE", "BCUTM", "DCUTE", "DCUTM", "PPCUTM", "TOFMAX",
}

func (c Cut) String() string {
	if c < 0 || c >= NofCuts {
		return "UNKNOWN"
	}
	return cutNames[c]
}

// ParseCut resolves a legacy cut name.
func ParseCut(name string) (Cut, error) {
	for i, n := range cutNames {
		if strings.EqualFold(n, name) {
			return Cut(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cut %q", name)
}

// CutVector holds energy cuts in GeV (TOFMAX in s); 0 means unset.
// It is comparable and used inside registry keys.
type CutVector [NofCuts]float64

// Set stores value for cut.
func (v *CutVector) Set(c Cut, value float64) { v[c] = value }

// IsSet reports whether any cut is set.
func (v CutVector) IsSet() bool {
	for _, x := range v {
		if x > 0 {
			return true
		}
	}
	return false
}

// Control indexes the legacy process-control vector.
type Control int

const (
	ControlPair Control = iota
	ControlCompton
	ControlPhotoElectric
	ControlPhotoFission
	ControlDeltaRay
	ControlAnnihilation
	ControlBremsstrahlung
	ControlHadronic
	ControlMuonNuclear
	ControlDecay
	ControlEnergyLoss
	ControlMultipleScattering
	ControlCerenkov
	ControlRayleigh
	ControlLightAbsorption
	ControlSynchrotron
	NofControls
)

var controlNames = [NofControls]string{
	"PAIR", "COMP", "PHOT", "PFIS", "DRAY", "ANNI", "BREM", "HADR",
	"MUNU", "DCAY", "LOSS", "MULS", "CKOV", "RAYL", "LABS", "SYNC",
}

func (c Control) String() string {
	if c < 0 || c >= NofControls {
		return "UNKNOWN"
	}
	return controlNames[c]
}

// ParseControl resolves a legacy control name.
func ParseControl(name string) (Control, error) {
	for i, n := range controlNames {
		if strings.EqualFold(n, name) {
			return Control(i), nil
		}
	}
	return 0, fmt.Errorf("unknown control %q", name)
}

// ControlValue is the per-process switch.
type ControlValue int8

const (
	ControlUnset      ControlValue = -1
	ControlInactivate ControlValue = 0
	ControlActivate   ControlValue = 1
	// ControlActivate2 activates the process without producing secondaries.
	ControlActivate2 ControlValue = 2
)

// ControlVector holds one switch per process. Use NewControlVector for an
// all-unset vector; the zero value means every process is inactivated.
type ControlVector [NofControls]ControlValue

// NewControlVector returns a vector with every entry unset.
func NewControlVector() ControlVector {
	var v ControlVector
	for i := range v {
		v[i] = ControlUnset
	}
	return v
}

// Set stores value for control c.
func (v *ControlVector) Set(c Control, value ControlValue) error {
	if value < ControlUnset || value > ControlActivate2 {
		return fmt.Errorf("control %s: invalid value %d", c, value)
	}
	v[c] = value
	return nil
}

// Merge copies every set entry of live into v.
func (v *ControlVector) Merge(live ControlVector) {
	for i, value := range live {
		if value != ControlUnset {
			v[i] = value
		}
	}
}

// IsSet reports whether any control is set.
func (v ControlVector) IsSet() bool {
	for _, x := range v {
		if x != ControlUnset {
			return true
		}
	}
	return false
}
