// collaborator_test.go - Tests fuer die Compiler-Collaborator-Registry
package runtime

import "testing"

func TestNewCollaboratorUnknownName(t *testing.T) {
	if _, err := NewCollaborator("does-not-exist"); err == nil {
		t.Fatal("NewCollaborator() mit unbekanntem Namen haette fehlschlagen sollen")
	}
}

func TestRegisterCollaboratorPanicsOnDuplicate(t *testing.T) {
	RegisterCollaborator("test-collaborator-dup", func() (CompilerCollaborator, error) {
		return &fakeCollaborator{}, nil
	})

	defer func() {
		if recover() == nil {
			t.Error("zweite Registrierung unter demselben Namen haette panicen sollen")
		}
	}()
	RegisterCollaborator("test-collaborator-dup", func() (CompilerCollaborator, error) {
		return &fakeCollaborator{}, nil
	})
}

func TestRegisterAndNewCollaborator(t *testing.T) {
	RegisterCollaborator("test-collaborator-ok", func() (CompilerCollaborator, error) {
		return &fakeCollaborator{}, nil
	})
	c, err := NewCollaborator("test-collaborator-ok")
	if err != nil {
		t.Fatalf("NewCollaborator() error = %v", err)
	}
	if c == nil {
		t.Fatal("NewCollaborator() = nil")
	}
}
