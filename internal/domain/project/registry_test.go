package project

import (
	"context"
	"errors"
	"testing"

	"github.com/relicta-tech/nextversion/internal/domain/version"
)

type stubDescriptor struct {
	typ     Type
	matches bool
}

func (s stubDescriptor) Type() Type            { return s.typ }
func (s stubDescriptor) Detect(string) bool    { return s.matches }
func (s stubDescriptor) Files(string) []string { return nil }

func (s stubDescriptor) ReadVersion(context.Context, string, CommandRunner) (version.SemanticVersion, error) {
	return version.Zero, nil
}

func (s stubDescriptor) WriteVersion(context.Context, string, version.SemanticVersion, CommandRunner) (string, error) {
	return "", nil
}

func TestRegistry_DetectFirstMatchWins(t *testing.T) {
	r, err := NewRegistry(
		stubDescriptor{typ: TypeMaven},
		stubDescriptor{typ: TypeGradle, matches: true},
		stubDescriptor{typ: TypeNPM, matches: true},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	d, ok := r.Detect("/any")
	if !ok {
		t.Fatal("Detect() found nothing")
	}
	if d.Type() != TypeGradle {
		t.Errorf("Detect() = %s, want gradle", d.Type())
	}

	all := r.DetectAll("/any")
	if len(all) != 2 || all[0].Type() != TypeGradle || all[1].Type() != TypeNPM {
		t.Errorf("DetectAll() = %v", all)
	}
}

func TestRegistry_NoMatch(t *testing.T) {
	r, err := NewRegistry(stubDescriptor{typ: TypeMake})
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := r.Detect("/any"); ok || d != nil {
		t.Errorf("Detect() = %v, %v; want nil, false", d, ok)
	}
}

func TestRegistry_DuplicateType(t *testing.T) {
	_, err := NewRegistry(stubDescriptor{typ: TypeGo}, stubDescriptor{typ: TypeGo})
	if !errors.Is(err, ErrDuplicateType) {
		t.Errorf("NewRegistry() error = %v, want ErrDuplicateType", err)
	}
}

func TestRegistry_LookupAndTypes(t *testing.T) {
	r, err := NewRegistry(stubDescriptor{typ: TypeHelm}, stubDescriptor{typ: TypePHP})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := r.Lookup(TypePHP); !ok {
		t.Error("Lookup(php) should succeed")
	}
	if _, ok := r.Lookup(TypeMaven); ok {
		t.Error("Lookup(maven) should fail")
	}

	types := r.Types()
	if len(types) != 2 || types[0] != TypeHelm || types[1] != TypePHP {
		t.Errorf("Types() = %v", types)
	}
}
