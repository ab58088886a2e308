package multires

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoExternalSource is returned when an external layer must be read but the
// orchestrator has no source configured.
var ErrNoExternalSource = errors.New("multires: no external source")

// ExternalSource stores displacement vectors outside the mesh, one slice per loop.
// Sources carry no level metadata.
type ExternalSource interface {
	ReadDisplacements(name string) ([][]r3.Vec, error)
	WriteDisplacements(name string, disps [][]r3.Vec) error
}

// ExternalRef marks a layer as paged from an ExternalSource.
type ExternalRef struct {
	Name string
	// InMemory is set once the vectors have been read.
	InMemory bool
}

// EnsureExternalRead completes an external layer in memory. Records whose level
// disagrees with topLevel drop their vectors, every record is stamped with
// topLevel, and the vectors are read from the source if not yet in memory.
func (o *Orchestrator) EnsureExternalRead(t Target, topLevel int) error {
	l := t.layer()
	if l == nil || l.External == nil {
		return nil
	}
	area := GridArea(topLevel)
	for i := range l.Disps {
		d := &l.Disps[i]
		if d.Level != topLevel {
			d.Disps = nil
		}
		d.TotDisp = area
		d.Level = topLevel
	}
	return o.readExternal(l)
}

func (o *Orchestrator) readExternal(l *Layer) error {
	if l.External.InMemory {
		return nil
	}
	if o.external == nil {
		return fmt.Errorf("read %q: %w", l.External.Name, ErrNoExternalSource)
	}
	vecs, err := o.external.ReadDisplacements(l.External.Name)
	if err != nil {
		return fmt.Errorf("read %q: %w", l.External.Name, err)
	}
	if len(vecs) != len(l.Disps) {
		return fmt.Errorf("read %q: %d grids for %d loops", l.External.Name, len(vecs), len(l.Disps))
	}
	mismatched := 0
	for i := range l.Disps {
		d := &l.Disps[i]
		if d.Disps != nil {
			continue
		}
		if len(vecs[i]) == d.TotDisp {
			d.Disps = vecs[i]
			continue
		}
		mismatched++
		d.Disps = make([]r3.Vec, d.TotDisp)
	}
	if mismatched > 0 {
		Logger().Warn("multires: external grids sized for another level", "name", l.External.Name, "grids", mismatched)
	}
	l.External.InMemory = true
	return nil
}

// ForceExternalReload re-reads the external vectors of ob and rebuilds its sculpt session.
func (o *Orchestrator) ForceExternalReload(ob *Object) error {
	l := ob.Layer
	if l == nil || l.External == nil {
		return nil
	}
	l.External.InMemory = false
	for i := range l.Disps {
		l.Disps[i].Disps = nil
	}
	if err := o.readExternal(l); err != nil {
		return err
	}
	return o.ForceSculptRebuild(ob)
}

// Externalize writes the vectors of ob to the external source under name and
// marks the layer as external.
func (o *Orchestrator) Externalize(ob *Object, name string) error {
	if ob.Layer == nil {
		return ErrNoLayer
	}
	if o.external == nil {
		return ErrNoExternalSource
	}
	vecs := make([][]r3.Vec, len(ob.Layer.Disps))
	for i := range ob.Layer.Disps {
		vecs[i] = ob.Layer.Disps[i].Disps
	}
	if err := o.external.WriteDisplacements(name, vecs); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	ob.Layer.External = &ExternalRef{Name: name, InMemory: true}
	return nil
}
