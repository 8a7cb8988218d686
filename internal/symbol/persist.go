package symbol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WriteTo serializes the interner's string table as length-prefixed
// entries. The reserved zero entry is not written;
// LoadInterner reinstates it.
func (in *Interner) WriteTo(w io.Writer) error {
	in.mu.RLock()
	defer in.mu.RUnlock()

	bw := bufio.NewWriter(w)
	count := uint32(len(in.strings) - 1)
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return err
	}
	for _, s := range in.strings[1:] {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := bw.WriteString(s); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadInterner reads an interner.bin produced by WriteTo.
func LoadInterner(r io.Reader) (*Interner, error) {
	br := bufio.NewReader(r)

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		if err == io.EOF {
			return NewInterner(), nil
		}
		return nil, fmt.Errorf("read interner entry count: %w", err)
	}

	in := &Interner{
		strings: make([]string, 1, count+1),
		ids:     make(map[string]InternedID, count),
	}
	in.strings[0] = ""

	for i := uint32(0); i < count; i++ {
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read interned string length: %w", err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read interned string: %w", err)
		}
		s := string(buf)
		id := InternedID(len(in.strings))
		in.strings = append(in.strings, s)
		in.ids[s] = id
	}
	return in, nil
}

// Save writes the interner to path (typically <index>/interner.bin).
func (in *Interner) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create interner file: %w", err)
	}
	defer f.Close()
	if err := in.WriteTo(f); err != nil {
		return fmt.Errorf("write interner file: %w", err)
	}
	return f.Close()
}

// LoadInternerFile loads an interner.bin from path. A missing file
// returns a fresh, empty Interner rather than an error — the first
// index run in a new directory has nothing to load yet.
func LoadInternerFile(path string) (*Interner, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewInterner(), nil
		}
		return nil, fmt.Errorf("open interner file: %w", err)
	}
	defer f.Close()
	return LoadInterner(f)
}
