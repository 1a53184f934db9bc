package role

import (
	"errors"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

type Level int

const (
	LevelNone Level = iota
	LevelMember
	LevelAdmin
	LevelSuperAdmin
)

const (
	Member     = "Member"
	Admin      = "Admin"
	SuperAdmin = "SuperAdmin"

	Default = Member
)

// All lists every assignable role from lowest to highest level.
var All = []string{Member, Admin, SuperAdmin}

// Hierarchy maps role names to levels. It is built once and never mutated,
// so a single value can be shared between goroutines.
type Hierarchy struct {
	levels map[string]Level
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{levels: map[string]Level{
		strings.ToLower(Member):     LevelMember,
		strings.ToLower(Admin):      LevelAdmin,
		strings.ToLower(SuperAdmin): LevelSuperAdmin,
	}}
}

// LevelOf resolves a role name case-insensitively. Partial names never match.
func (h *Hierarchy) LevelOf(name string) (Level, bool) {
	lvl, ok := h.levels[strings.ToLower(name)]
	return lvl, ok
}

// Canonical returns the enumeration spelling of name.
func (h *Hierarchy) Canonical(name string) (string, bool) {
	lvl, ok := h.LevelOf(name)
	if !ok {
		return "", false
	}
	return All[lvl-1], true
}

// MaxLevel is the highest level among presented roles. Unknown names count for nothing.
func (h *Hierarchy) MaxLevel(presented []string) Level {
	best := LevelNone
	for _, name := range presented {
		if lvl, ok := h.LevelOf(name); ok && lvl > best {
			best = lvl
		}
	}
	return best
}

func (h *Hierarchy) Authorize(presented []string, minimum Level) bool {
	if minimum <= LevelNone {
		minimum = LevelMember
	}
	return h.MaxLevel(presented) >= minimum
}

// Requirement is the minimum role an operation demands.
type Requirement struct {
	Minimum Level
}

func (r Requirement) Allows(h *Hierarchy, presented []string) bool {
	return h.Authorize(presented, r.Minimum)
}

func (l Level) String() string {
	if l < LevelMember || int(l) > len(All) {
		return "None"
	}
	return All[l-1]
}
