package multires

import (
	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode is the interaction mode of an object.
type Mode uint8

const (
	ModeObject Mode = iota
	ModeEdit
	ModeSculpt
)

func (m Mode) String() string {
	switch m {
	case ModeEdit:
		return "edit"
	case ModeSculpt:
		return "sculpt"
	default:
		return "object"
	}
}

// Modifier holds the level configuration of a multires stack entry.
// 0 <= Lvl, SculptLvl, RenderLvl <= TotLvl <= MaxLevels.
type Modifier struct {
	TotLvl    int
	Lvl       int
	SculptLvl int
	RenderLvl int
	Simple    bool
}

// Object binds a base mesh to its displacement layer and modifier.
type Object struct {
	Name     string
	Mesh     *mesh.Mesh
	Layer    *Layer
	Modifier *Modifier
	Mode     Mode
	// Scale is the object scale applied by ApplyObjectScale.
	Scale r3.Vec
	// Sculpt is nil outside of sculpting.
	Sculpt *SculptSession
	// Edit is set while the object is in edit mode.
	Edit *EditMesh
}

// NewObject wraps m with unit scale and no modifier.
func NewObject(name string, m *mesh.Mesh) *Object {
	return &Object{Name: name, Mesh: m, Scale: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// EvalContext selects which level an evaluation uses.
type EvalContext struct {
	Render         bool
	IgnoreSimplify bool
	// Simplify caps the level when UseSimplify is set.
	UseSimplify bool
	Simplify    int
}

func (c EvalContext) simplify(level int) int {
	if c.UseSimplify && !c.IgnoreSimplify && c.Simplify < level {
		return c.Simplify
	}
	return level
}

// GetLevel returns the level evaluated for ob under ctx.
func GetLevel(ob *Object, mmd *Modifier, ctx EvalContext) int {
	if ctx.Render {
		return ctx.simplify(mmd.RenderLvl)
	}
	if ob.Mode == ModeSculpt {
		return mmd.SculptLvl
	}
	if ctx.IgnoreSimplify {
		return mmd.Lvl
	}
	return ctx.simplify(mmd.Lvl)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetTotLevel sets the stored level and pulls the display levels up to it.
// Lvl is left alone while sculpting.
func SetTotLevel(ob *Object, mmd *Modifier, lvl int) {
	mmd.TotLvl = lvl
	if ob.Mode != ModeSculpt {
		mmd.Lvl = clamp(max(mmd.Lvl, lvl), 0, mmd.TotLvl)
	}
	mmd.SculptLvl = clamp(max(mmd.SculptLvl, lvl), 0, mmd.TotLvl)
	mmd.RenderLvl = clamp(max(mmd.RenderLvl, lvl), 0, mmd.TotLvl)
}

// SetLevelsFromDisps resets the modifier levels to match the stored grids.
func SetLevelsFromDisps(mmd *Modifier, t Target) {
	l := t.layer()
	if l == nil {
		return
	}
	mmd.TotLvl = levelsFromTarget(t)
	mmd.Lvl = min(mmd.SculptLvl, mmd.TotLvl)
	mmd.SculptLvl = min(mmd.SculptLvl, mmd.TotLvl)
	mmd.RenderLvl = min(mmd.RenderLvl, mmd.TotLvl)
}
