package child

import (
	"net/url"
	"strconv"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
)

// Query keys of a child location.
const (
	KeyLoader   = "loader"
	KeyModule   = "module"
	KeyInstance = "instance"
	KeyDebug    = "debug"
)

// DefaultPath is the path component host frames use for child locations.
const DefaultPath = "/bridge/child"

// Location is the set of parameters a child realm is created with.
type Location struct {
	LoaderPath string
	ModulePath string
	InstanceID string
	// Debug is the initial debug ray-march mode. Empty leaves the module's
	// default.
	Debug event.DebugMode
}

// ParseLocation reads a child location. A location without an instance
// identifier cannot be answered and is rejected here; missing loader or
// module paths are left for Validate so they can be reported to the host.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.New(errors.PhaseConfig, errors.KindInvalidParam).
			Field("location").
			Value(raw).
			Cause(err).
			Detail("malformed child location").
			Build()
	}
	q := u.Query()

	loc := Location{
		LoaderPath: q.Get(KeyLoader),
		ModulePath: q.Get(KeyModule),
		InstanceID: q.Get(KeyInstance),
	}
	if loc.InstanceID == "" {
		return Location{}, errors.MissingParam("", KeyInstance)
	}

	if raw := q.Get(KeyDebug); raw != "" {
		mode, err := parseDebug(raw)
		if err != nil {
			return Location{}, err
		}
		loc.Debug = mode
	}
	return loc, nil
}

// parseDebug accepts a debug mode name or a boolean flag, true selecting
// Normals.
func parseDebug(raw string) (event.DebugMode, error) {
	if mode := event.DebugMode(raw); mode.Valid() {
		return mode, nil
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return "", errors.InvalidEnum(errors.PhaseConfig, KeyDebug, raw, "DebugMode")
	}
	if on {
		return event.DebugNormals, nil
	}
	return event.DebugOff, nil
}

// Validate reports missing required parameters.
func (l Location) Validate() error {
	switch {
	case l.InstanceID == "":
		return errors.MissingParam("", KeyInstance)
	case l.LoaderPath == "":
		return errors.MissingParam(l.InstanceID, KeyLoader)
	case l.ModulePath == "":
		return errors.MissingParam(l.InstanceID, KeyModule)
	}
	return nil
}

// String encodes l as a location under DefaultPath.
func (l Location) String() string {
	q := url.Values{}
	if l.LoaderPath != "" {
		q.Set(KeyLoader, l.LoaderPath)
	}
	if l.ModulePath != "" {
		q.Set(KeyModule, l.ModulePath)
	}
	if l.InstanceID != "" {
		q.Set(KeyInstance, l.InstanceID)
	}
	if l.Debug != "" {
		q.Set(KeyDebug, string(l.Debug))
	}
	u := url.URL{Path: DefaultPath, RawQuery: q.Encode()}
	return u.String()
}
