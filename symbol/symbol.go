// Package symbol wraps an object-file symbol table entry with a cached,
// lazily-computed display name, the way headcrab's symbol::Symbol
// wraps an object::Symbol with a demangled-name cache.
//
// tracekit does not parse object files or demangle names itself - both
// are the caller's responsibility, supplied through RawSymbol. Symbol
// only adds the "compute the display name once" caching layer on top.
package symbol

import "sync"

// SymbolKind classifies what a symbol refers to.
type SymbolKind int

const (
	KindUnknown SymbolKind = iota
	KindNull
	KindText
	KindData
	KindSection
	KindFile
	KindLabel
	KindTLS
)

// SymbolSectionKind classifies where a symbol is defined.
type SymbolSectionKind int

const (
	SectionUnknown SymbolSectionKind = iota
	SectionNone
	SectionUndefined
	SectionAbsolute
	SectionCommon
	SectionSection
)

// SymbolScope reports a symbol's visibility.
type SymbolScope int

const (
	ScopeUnknown SymbolScope = iota
	ScopeCompilation
	ScopeLinkage
	ScopeDynamic
)

// RawSymbol is whatever object-file library the caller uses for symbol
// lookup, modeled on headcrab's object::Symbol surface.
type RawSymbol interface {
	Name() string
	Kind() SymbolKind
	Section() SymbolSectionKind
	SectionIndex() (int, bool)
	IsUndefined() bool
	IsWeak() bool
	Scope() SymbolScope
	Flags() uint32
	Address() uint64
	Size() uint64
}

// Symbol wraps a RawSymbol and caches its display name on first use.
// The caller's RawSymbol.Name() is responsible for any demangling;
// Symbol only computes it once.
type Symbol struct {
	raw RawSymbol

	nameOnce sync.Once
	name     string
}

// New wraps raw as a Symbol.
func New(raw RawSymbol) *Symbol {
	return &Symbol{raw: raw}
}

// Name returns the symbol's display name, computed and cached on first call.
func (s *Symbol) Name() string {
	s.nameOnce.Do(func() {
		s.name = s.raw.Name()
	})
	return s.name
}

// OrigName returns the raw, uncached name every time - useful when the
// caller wants to bypass the cache (e.g. after Name() was computed
// against a stale raw value in a test).
func (s *Symbol) OrigName() string {
	return s.raw.Name()
}

func (s *Symbol) Kind() SymbolKind { return s.raw.Kind() }

func (s *Symbol) Section() SymbolSectionKind { return s.raw.Section() }

func (s *Symbol) SectionIndex() (int, bool) { return s.raw.SectionIndex() }

func (s *Symbol) IsUndefined() bool { return s.raw.IsUndefined() }

func (s *Symbol) IsWeak() bool { return s.raw.IsWeak() }

// IsGlobal reports whether the symbol is visible outside its
// compilation unit, treating ScopeUnknown as global.
func (s *Symbol) IsGlobal() bool {
	return s.raw.Scope() != ScopeCompilation
}

// IsLocal reports whether the symbol is only visible within its
// compilation unit.
func (s *Symbol) IsLocal() bool {
	return s.raw.Scope() == ScopeCompilation
}

func (s *Symbol) Scope() SymbolScope { return s.raw.Scope() }

func (s *Symbol) Flags() uint32 { return s.raw.Flags() }

func (s *Symbol) Address() uint64 { return s.raw.Address() }

func (s *Symbol) Size() uint64 { return s.raw.Size() }
