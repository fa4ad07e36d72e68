package media

import (
	"io"
	"log/slog"
	"testing"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestWriteReadDelete(t *testing.T) {
	f := testFS(t)

	if err := f.Write("cat.png", []byte("png-bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read("cat.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q", data)
	}

	if err := f.Delete("cat.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.Read("cat.png"); err == nil {
		t.Error("read after delete should fail")
	}
}

func TestWriteOverwrites(t *testing.T) {
	f := testFS(t)
	if err := f.Write("a.mp3", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := f.Write("a.mp3", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	data, _ := f.Read("a.mp3")
	if string(data) != "v2" {
		t.Errorf("data = %q, want v2", data)
	}
}

func TestList(t *testing.T) {
	f := testFS(t)
	if err := f.Write("a.png", []byte("aaa")); err != nil {
		t.Fatal(err)
	}
	if err := f.Write("b.png", []byte("bbb")); err != nil {
		t.Fatal(err)
	}

	files, err := f.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len = %d, want 2", len(files))
	}
	for _, m := range files {
		if m.Size != 3 || m.Checksum == "" {
			t.Errorf("meta = %+v", m)
		}
	}
}

func TestRejectsUnsafeNames(t *testing.T) {
	f := testFS(t)
	for _, name := range []string{"", "../escape.png", "a/b.png", "..", "/abs.png"} {
		if err := f.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) should fail", name)
		}
		if _, err := f.Read(name); err == nil {
			t.Errorf("Read(%q) should fail", name)
		}
	}
}

func TestCleanupUnused(t *testing.T) {
	f := testFS(t)
	for _, name := range []string{"used.png", "orphan1.png", "orphan2.mp3"} {
		if err := f.Write(name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	removed := CleanupUnused(f, func(name string) bool { return name == "used.png" }, logger)
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	files, _ := f.List()
	if len(files) != 1 || files[0].Name != "used.png" {
		t.Errorf("surviving files = %+v", files)
	}
}
