package api

import (
	"fmt"
	"strings"

	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
)

// Info summarises a .mres document.
type Info struct {
	Name        string
	Version     uint8
	Compression mres.Compression
	Verts       int
	Faces       int
	Loops       int
	Modifier    *multires.Modifier
	// StoredLevel is the level derived from the grids themselves.
	StoredLevel int
	External    string
	Hidden      int
	Masks       bool
}

// Inspect decodes data without evaluating it. Legacy documents are converted
// to report their levels.
func (e *Engine) Inspect(data []byte) (*Info, error) {
	doc, err := mres.Decode(data)
	if err != nil {
		return nil, err
	}
	ob := doc.Object
	if doc.Legacy != nil {
		if ob, err = e.Load(data); err != nil {
			return nil, err
		}
	}
	info := &Info{
		Name:        ob.Name,
		Version:     doc.Version,
		Compression: doc.Compression,
		Verts:       len(ob.Mesh.Verts),
		Faces:       len(ob.Mesh.Polys),
		Loops:       ob.Mesh.NumLoops(),
		Modifier:    ob.Modifier,
	}
	if l := ob.Layer; l != nil {
		info.StoredLevel = multires.LevelsFromDisps(ob.Mesh, l)
		info.Hidden = l.HiddenCount()
		info.Masks = l.Masks != nil
		if l.External != nil {
			info.External = l.External.Name
		}
	}
	return info, nil
}

func (i *Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "object:      %s\n", i.Name)
	fmt.Fprintf(&b, "format:      v%d (%s)\n", i.Version, i.Compression)
	fmt.Fprintf(&b, "mesh:        %d verts, %d faces, %d loops\n", i.Verts, i.Faces, i.Loops)
	if m := i.Modifier; m != nil {
		fmt.Fprintf(&b, "levels:      total %d, view %d, sculpt %d, render %d\n", m.TotLvl, m.Lvl, m.SculptLvl, m.RenderLvl)
	} else {
		b.WriteString("levels:      no multires modifier\n")
	}
	fmt.Fprintf(&b, "grids:       level %d\n", i.StoredLevel)
	fmt.Fprintf(&b, "hidden:      %d samples\n", i.Hidden)
	fmt.Fprintf(&b, "paint mask:  %t\n", i.Masks)
	if i.External != "" {
		fmt.Fprintf(&b, "external:    %s\n", i.External)
	}
	return b.String()
}
