package manager

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"indexkernel/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Version:         1,
		DefaultAnalyzer: "standard",
		Fields: []schema.FieldDef{
			{Name: "id", Type: schema.FieldTypeKeyword, Stored: true, Indexed: true},
		},
	}
}

func TestManager_CreateOpenDelete(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := m.CreateIndex("products", testSchema()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if _, err := m.CreateIndex("products", testSchema()); !errors.Is(err, ErrIndexExists) {
		t.Errorf("second CreateIndex = %v, want ErrIndexExists", err)
	}

	idx, err := m.OpenIndex("products")
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	if idx.Docstamp() != 0 {
		t.Errorf("Docstamp() = %d, want 0", idx.Docstamp())
	}

	if err := m.DeleteIndex("products"); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
	if _, err := m.OpenIndex("products"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("OpenIndex after delete = %v, want ErrIndexNotFound", err)
	}
	if _, err := m.OpenIndex("does-not-exist"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("OpenIndex unknown = %v, want ErrIndexNotFound", err)
	}
}

func TestManager_ListIndexes(t *testing.T) {
	root := t.TempDir()
	m, err := New(root, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if _, err := m.CreateIndex(name, testSchema()); err != nil {
			t.Fatalf("CreateIndex(%s): %v", name, err)
		}
	}

	names := m.ListIndexes()
	sort.Strings(names)
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("ListIndexes() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListIndexes()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestManager_ReopensExistingIndexesFromDisk(t *testing.T) {
	root := t.TempDir()
	m1, err := New(root, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m1.CreateIndex("orders", testSchema()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	m2, err := New(root, Options{})
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	idx, err := m2.OpenIndex("orders")
	if err != nil {
		t.Fatalf("OpenIndex on reload: %v", err)
	}
	if idx.Docstamp() != 0 {
		t.Errorf("Docstamp() = %d, want 0", idx.Docstamp())
	}
}

func TestManager_SkipsCorruptedIndexOnLoad(t *testing.T) {
	root := t.TempDir()
	m1, err := New(root, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m1.CreateIndex("broken", testSchema()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	metaPath := filepath.Join(root, "broken", "meta.json")
	if err := os.WriteFile(metaPath, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	m2, err := New(root, Options{})
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	if _, err := m2.OpenIndex("broken"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("OpenIndex(broken) = %v, want ErrIndexNotFound (skipped at load)", err)
	}
}
