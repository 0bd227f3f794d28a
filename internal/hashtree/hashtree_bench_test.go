package hashtree

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"semdex/internal/fsys"
)

func BenchmarkBuild(b *testing.B) {
	tmp := b.TempDir()
	for i := 0; i < 200; i++ {
		sub := filepath.Join(tmp, fmt.Sprintf("pkg%02d", i%10))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			b.Fatal(err)
		}
		content := fmt.Sprintf("def handler_%03d(req):\n    return req.body\n", i)
		if err := os.WriteFile(filepath.Join(sub, fmt.Sprintf("f%03d.py", i)), []byte(content), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	builder := NewBuilder(fsys.NewOS(), nil, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(tmp); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiff(b *testing.B) {
	fs := &fakeFS{
		dirs:  map[string][]fsys.Entry{"/r": nil},
		files: map[string][]byte{},
	}
	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("f%03d.py", i)
		fs.dirs["/r"] = append(fs.dirs["/r"], file(name, 8))
		fs.files["/r/"+name] = []byte(fmt.Sprintf("body %03d", i))
	}
	prev, err := NewBuilder(fs, nil, nil).Build("/r")
	if err != nil {
		b.Fatal(err)
	}
	fs.files["/r/f000.py"] = []byte("edited")
	curr, err := NewBuilder(fs, nil, nil).Build("/r")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := Diff(prev, curr)
		if len(d.Changed) != 1 {
			b.Fatal("unexpected diff")
		}
	}
}
