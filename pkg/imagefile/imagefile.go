// Package imagefile stores sealed images on disk as canonical CBOR.
//
// Records are written in the host's native word layout, so a file records
// the word size it was built with and refuses to load on a host with a
// different one.
package imagefile

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/psilLang/wordvm/pkg/bytecode"
)

// Magic identifies a wordvm image file.
const Magic = "WVMI"

// Version is the current file format version.
const Version uint16 = 1

// Ext is the conventional file extension.
const Ext = ".wvi"

var (
	ErrBadMagic = errors.New("imagefile: not a wordvm image")
	ErrVersion  = errors.New("imagefile: unsupported format version")
	ErrWordSize = errors.New("imagefile: word size mismatch")
)

// file is the on-disk layout.
type file struct {
	Magic    string            `cbor:"1,keyasint"`
	Version  uint16            `cbor:"2,keyasint"`
	WordSize uint8             `cbor:"3,keyasint"`
	Code     []byte            `cbor:"4,keyasint"`
	Name     string            `cbor:"5,keyasint,omitempty"`
	Labels   map[string]uint64 `cbor:"6,keyasint,omitempty"`
}

// Bundle is an image together with the metadata kept next to it.
type Bundle struct {
	Name   string
	Image  *bytecode.Image
	Labels map[string]int
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("imagefile: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes b. Equal bundles always encode to equal bytes.
func Marshal(b *Bundle) ([]byte, error) {
	f := file{
		Magic:    Magic,
		Version:  Version,
		WordSize: bytecode.WordSize,
		Code:     b.Image.Bytes(),
		Name:     b.Name,
	}
	if len(b.Labels) > 0 {
		f.Labels = make(map[string]uint64, len(b.Labels))
		for name, off := range b.Labels {
			f.Labels[name] = uint64(off)
		}
	}
	return encMode.Marshal(&f)
}

// Unmarshal decodes an image file. The image is not validated here.
func Unmarshal(data []byte) (*Bundle, error) {
	var f file
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("imagefile: unmarshal: %w", err)
	}
	if f.Magic != Magic {
		return nil, ErrBadMagic
	}
	if f.Version == 0 || f.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, f.Version)
	}
	if int(f.WordSize) != bytecode.WordSize {
		return nil, fmt.Errorf("%w: file has %d-byte words, host has %d", ErrWordSize, f.WordSize, bytecode.WordSize)
	}

	b := &Bundle{Name: f.Name, Image: bytecode.NewImage(f.Code)}
	if len(f.Labels) > 0 {
		b.Labels = make(map[string]int, len(f.Labels))
		for name, off := range f.Labels {
			if off > uint64(len(f.Code)) {
				return nil, fmt.Errorf("imagefile: label %q points past the image (%d)", name, off)
			}
			b.Labels[name] = int(off)
		}
	}
	return b, nil
}

// IsImage reports whether data looks like an image file.
func IsImage(data []byte) bool {
	var hdr struct {
		Magic string `cbor:"1,keyasint"`
	}
	if err := cbor.Unmarshal(data, &hdr); err != nil {
		return false
	}
	return hdr.Magic == Magic
}

// WriteFile marshals b to path.
func WriteFile(path string, b *Bundle) error {
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("imagefile: write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads an image file from path.
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imagefile: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
