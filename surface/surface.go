// Package surface models the child realm's document: rendering surfaces
// indexed by identifier, and the loader script elements injected for each
// bridge instance.
//
// The foreign module's loader finds its surface by the fixed LoaderID, so an
// instance renames its surface to LoaderID for the duration of
// initialization and restores the stable identifier afterwards. Rename hands
// out a Lease; only the latest lease on a surface can restore it.
package surface

import (
	"fmt"
	"sync"
)

// LoaderID is the identifier the foreign module's loader looks up.
const LoaderID = "render-canvas"

// Script is an injected loader element owned by one instance.
type Script struct {
	Owner string
	Src   string
}

// Document indexes surfaces and scripts. It is safe for concurrent use.
type Document struct {
	surfaces map[string]*Surface
	scripts  map[string]*Script
	mu       sync.Mutex
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		surfaces: make(map[string]*Surface),
		scripts:  make(map[string]*Script),
	}
}

// CreateSurface adds a surface under its stable identifier.
func (d *Document) CreateSurface(id string, width, height int) (*Surface, error) {
	if id == "" || id == LoaderID {
		return nil, fmt.Errorf("surface: invalid stable id %q", id)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.surfaces[id]; exists {
		return nil, fmt.Errorf("surface: id %q already in use", id)
	}
	s := &Surface{
		doc:       d,
		id:        id,
		stableID:  id,
		width:     width,
		height:    height,
		visible:   true,
		observers: make(map[uint64]func(bool)),
	}
	d.surfaces[id] = s
	return s, nil
}

// Lookup returns the surface currently carrying id. When several surfaces
// were renamed to the same id, the most recent one shadows the others.
func (d *Document) Lookup(id string) (*Surface, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.surfaces[id]
	return s, ok
}

// InjectScript records a loader element for owner, replacing any previous one.
func (d *Document) InjectScript(owner, src string) *Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc := &Script{Owner: owner, Src: src}
	d.scripts[owner] = sc
	return sc
}

// RemoveScript removes owner's loader element and reports whether one existed.
func (d *Document) RemoveScript(owner string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.scripts[owner]
	delete(d.scripts, owner)
	return ok
}

// DetachScript removes sc only if it is still the element recorded for its
// owner.
func (d *Document) DetachScript(sc *Script) bool {
	if sc == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scripts[sc.Owner] != sc {
		return false
	}
	delete(d.scripts, sc.Owner)
	return true
}

// Script returns owner's loader element.
func (d *Document) Script(owner string) (*Script, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.scripts[owner]
	return sc, ok
}

// Lease identifies one Rename of a surface. The zero Lease restores nothing.
type Lease uint64

// Surface is a rendering target with a mutable identifier and a visibility flag.
type Surface struct {
	doc       *Document
	observers map[uint64]func(bool)
	id        string
	stableID  string
	width     int
	height    int
	nextObs   uint64
	lease     Lease
	mu        sync.Mutex
	visible   bool
}

// ID returns the identifier the surface currently carries.
func (s *Surface) ID() string {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	return s.id
}

// StableID returns the application's own identifier for the surface.
func (s *Surface) StableID() string {
	return s.stableID
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

// Rename re-indexes the surface under id and returns the lease that
// restores it. Any earlier lease is invalidated.
func (s *Surface) Rename(id string) Lease {
	d := s.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surfaces[s.id] == s {
		delete(d.surfaces, s.id)
	}
	s.id = id
	d.surfaces[id] = s
	s.lease++
	return s.lease
}

// Restore returns the surface to its stable identifier if l is still the
// latest lease. It reports whether the identifier changed.
func (s *Surface) Restore(l Lease) bool {
	d := s.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	if l == 0 || l != s.lease || s.id == s.stableID {
		return false
	}
	if d.surfaces[s.id] == s {
		delete(d.surfaces, s.id)
	}
	s.id = s.stableID
	d.surfaces[s.id] = s
	return true
}

// Remove detaches the surface from its document.
func (s *Surface) Remove() {
	d := s.doc
	d.mu.Lock()
	if d.surfaces[s.id] == s {
		delete(d.surfaces, s.id)
	}
	d.mu.Unlock()

	s.mu.Lock()
	clear(s.observers)
	s.mu.Unlock()
}

// Visible reports whether the surface intersects the viewport.
func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SetVisible updates visibility and notifies observers on change.
func (s *Surface) SetVisible(visible bool) {
	s.mu.Lock()
	if s.visible == visible {
		s.mu.Unlock()
		return
	}
	s.visible = visible
	fns := make([]func(bool), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(visible)
	}
}

// Observe registers fn for visibility changes and returns a function
// removing it.
func (s *Surface) Observe(fn func(visible bool)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}
