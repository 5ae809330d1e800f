// Package change defines the Change value type and the small set of
// request/result/filter records every Tracker and Runner operation
// exchanges.
package change

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Type tags the kind of migration artifact a Change represents. The
// zero value Type("") is equivalent to TypeModule.
type Type string

const (
	TypeModule Type = "module"
	TypeScript Type = "script"
	TypeData   Type = "data"
	TypeSchema Type = "schema"
	TypeOther  Type = "other"
)

// Effective returns t, or TypeModule when t is the zero value.
func (t Type) Effective() Type {
	if t == "" {
		return TypeModule
	}
	return t
}

// Change is the central value: a migration artifact discovered on the
// filesystem and/or a row in a Tracker's applied log.
type Change struct {
	ID          string    `json:"id,omitempty" bson:"id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	File        string    `json:"file" bson:"file"`
	Path        string    `json:"path" bson:"path"`
	Extension   string    `json:"extension" bson:"extension"`
	Type        Type      `json:"type,omitempty" bson:"type,omitempty"`
	Owner       string    `json:"owner,omitempty" bson:"owner,omitempty"`
	Tags        []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Content     string    `json:"content,omitempty" bson:"-"`
	Created     time.Time `json:"created" bson:"created"`
	Applied     time.Time `json:"applied,omitempty" bson:"applied,omitempty"`
	Flow        string    `json:"flow,omitempty" bson:"-"`
}

// Key returns the (file, name) pair that identifies a Change within a
// scan and within an applied log, per spec invariant (i)/(ii).
func (c Change) Key() (file, name string) {
	return c.File, c.Name
}

// SameKey reports whether c and other share a (file, name) identity.
func (c Change) SameKey(other Change) bool {
	f1, n1 := c.Key()
	f2, n2 := other.Key()
	return f1 == f2 && n1 == n2
}

var timestampLayouts = []string{
	"20060102150405",
}

// ParseFilename splits a migration artifact's base filename into an
// optional created timestamp and a logical name, following
// <YYYYMMDDhhmmss>.<name>.<rest...>. When the leading segment does not
// parse as a timestamp, base is returned unchanged as the name and
// created is nil — the caller is expected to fall back to filesystem
// birthtime. ParseFilename does not strip an extension; the tracker
// scan removes it before calling.
func ParseFilename(base string) (created *time.Time, name string) {
	segments := strings.Split(base, ".")
	if len(segments) < 2 {
		return nil, base
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, segments[0]); err == nil {
			return &t, segments[1]
		}
	}

	return nil, base
}

// FilterType controls how Filter.Name/Filter.File interact with a scan.
type FilterType string

const (
	FilterInclude FilterType = "include"
	FilterExclude FilterType = "exclude"
	FilterStart   FilterType = "start"
	FilterStop    FilterType = "stop"
)

// Filter narrows a Tracker operation's set algebra.
type Filter struct {
	ID      string
	Tag     string
	Count   int
	Created time.Time
	Name    string
	File    string
	Type    FilterType
}

// NameRegexp compiles Filter.Name, returning nil (matches everything)
// when the filter has no name pattern set.
func (f Filter) NameRegexp() (*regexp.Regexp, error) {
	if f.Name == "" {
		return nil, nil
	}
	return regexp.Compile(f.Name)
}

// Request is the thin, driver-opaque configuration record every Tracker
// and Runner operation takes.
type Request struct {
	Flow      string
	Path      string
	Extension string
	Runner    string
	Tracker   string
	Prefix    string
	Filter    Filter
	Params    map[string]any
	Stat      bool
	Action    string
}

// Result is the uniform return value of every public operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Ok builds a successful Result.
func Ok(data any) Result { return Result{Success: true, Data: data} }

// OkMessage builds a successful Result carrying a human message.
func OkMessage(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail builds a failed Result from an error.
func Fail(err error) Result {
	if err == nil {
		return Result{Success: false}
	}
	return Result{Success: false, Message: err.Error()}
}

// FailMessage builds a failed Result from a plain message.
func FailMessage(message string) Result {
	return Result{Success: false, Message: message}
}

// TrackerInfo is the composed view returned by Tracker.Info.
type TrackerInfo struct {
	Filter     Filter
	Last       *Change
	Available  []Change
	Applied    []Change
	Ignored    []Change
	Missing    []Change
}

// Sentinel errors surfaced through the Result/error taxonomy described
// in spec §7.
var (
	ErrNotAvailable   = errors.New("driver not available")
	ErrTypeGate       = errors.New("only 'module' type changes are supported")
	ErrNotImplemented = errors.New("not implemented")
)
