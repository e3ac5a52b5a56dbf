package machineid

import "testing"

func TestLoad_PersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	id1, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == "" {
		t.Fatal("expected a non-empty machine id")
	}

	id2, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected the same id across calls, got %s then %s", id1, id2)
	}
}

func TestLoad_DifferentDirsGetDifferentIDs(t *testing.T) {
	id1, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id2, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("expected different machine ids for different directories")
	}
}
