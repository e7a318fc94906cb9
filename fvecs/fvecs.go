// Package fvecs reads and writes the .fvecs vector format: each record is a
// little-endian int32 dimension followed by that many float32 components.
package fvecs

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrMalformed is returned for non-positive or non-uniform record dimensions
var ErrMalformed = errors.New("malformed fvecs data")

// Read parses every record of r. All records must share one dimension.
func Read(r io.Reader) ([][]float64, error) {
	br := bufio.NewReader(r)

	data := make([][]float64, 0)
	dim := -1
	var header [4]byte
	var body bytes.Buffer

	for record := 0; ; record++ {
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if err == io.EOF {
				return data, nil
			}
			return nil, fmt.Errorf("record %d header: %w", record, err)
		}

		d := int32(binary.LittleEndian.Uint32(header[:]))
		if d <= 0 {
			return nil, fmt.Errorf("%w: record %d has dimension %d", ErrMalformed, record, d)
		}
		if dim < 0 {
			dim = int(d)
		} else if int(d) != dim {
			return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d", ErrMalformed, record, d, dim)
		}

		// sized by the bytes actually read, not by the header
		body.Reset()
		if _, err := io.CopyN(&body, br, 4*int64(dim)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("record %d body: %w", record, err)
		}
		buf := body.Bytes()

		v := make([]float64, dim)
		for i := range v {
			v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
		}
		data = append(data, v)
	}
}

// ReadFile reads the fvecs file at path
func ReadFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Write encodes data as fvecs records. Components are narrowed to float32.
func Write(w io.Writer, data [][]float64) error {
	bw := bufio.NewWriter(w)

	for i, v := range data {
		if len(v) == 0 || len(v) > math.MaxInt32 {
			return fmt.Errorf("%w: vector %d has dimension %d", ErrMalformed, i, len(v))
		}
		if len(v) != len(data[0]) {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrMalformed, i, len(v), len(data[0]))
		}

		buf := make([]byte, 4+4*len(v))
		binary.LittleEndian.PutUint32(buf, uint32(len(v)))
		for j, x := range v {
			binary.LittleEndian.PutUint32(buf[4+4*j:], math.Float32bits(float32(x)))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes data to path, replacing any existing file
func WriteFile(path string, data [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
