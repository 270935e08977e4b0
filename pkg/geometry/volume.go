package geometry

import "strings"

// ReflectionSuffix is appended to the names of reflected logical volumes.
const ReflectionSuffix = "_refl"

// StripReflectionSuffix returns the name of the volume a reflected copy was made from.
func StripReflectionSuffix(name string) string {
	if i := strings.Index(name, ReflectionSuffix); i > 0 {
		return name[:i]
	}
	return name
}

// Handle is the opaque native reference of a logical volume. Zero is never issued.
type Handle uint64

// VolumeIdentity ties the native handle to the optional legacy numeric ID.
type VolumeIdentity struct {
	Handle   Handle
	LegacyID *int
	Name     string
}

// HasLegacyID reports whether the volume came from a legacy table.
func (id VolumeIdentity) HasLegacyID() bool { return id.LegacyID != nil }

// UserLimits is the step-limit view a logical volume carries.
type UserLimits interface {
	MaxAllowedStep() float64
}

// LogicalVolume is a named shape+material node, placed through PhysicalVolumes.
// Assemblies are pure grouping nodes without solid or material.
type LogicalVolume struct {
	identity  VolumeIdentity
	Solid     Solid
	Material  *Material
	assembly  bool
	daughters []*PhysicalVolume
	limits    UserLimits
	reflected *LogicalVolume
	original  *LogicalVolume
}

// Identity returns the volume identity.
func (lv *LogicalVolume) Identity() VolumeIdentity { return lv.identity }

// Handle returns the native handle.
func (lv *LogicalVolume) Handle() Handle { return lv.identity.Handle }

// Name returns the volume name.
func (lv *LogicalVolume) Name() string { return lv.identity.Name }

// IsAssembly reports whether the volume is a pure grouping node.
func (lv *LogicalVolume) IsAssembly() bool { return lv.assembly }

// IsReflected reports whether the volume is a reflected copy.
func (lv *LogicalVolume) IsReflected() bool { return lv.original != nil }

// Daughters returns the placements inside this volume.
func (lv *LogicalVolume) Daughters() []*PhysicalVolume {
	out := make([]*PhysicalVolume, len(lv.daughters))
	copy(out, lv.daughters)
	return out
}

// NofDaughters returns the number of placements inside this volume.
func (lv *LogicalVolume) NofDaughters() int { return len(lv.daughters) }

// UserLimits returns the installed limits, nil when none.
func (lv *LogicalVolume) UserLimits() UserLimits { return lv.limits }

// SetUserLimits installs limits on the volume.
func (lv *LogicalVolume) SetUserLimits(l UserLimits) { lv.limits = l }

// PhysicalVolume is one placement of a logical volume inside a mother.
// The world placement has no mother.
type PhysicalVolume struct {
	Name      string
	Logical   *LogicalVolume
	Mother    *LogicalVolume
	CopyNo    int
	Transform Transform
}

// contains reports whether target appears in the subtree rooted at lv.
func (lv *LogicalVolume) contains(target *LogicalVolume) bool {
	if lv == target {
		return true
	}
	for _, d := range lv.daughters {
		if d.Logical.contains(target) {
			return true
		}
	}
	return false
}
