package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestArgmax(t *testing.T) {
	test.That(t, Argmax([]float64{0.5, 0.5}), test.ShouldEqual, 0)
	test.That(t, Label(Argmax([]float64{0.5, 0.5})), test.ShouldEqual, "1")
	test.That(t, Argmax([]float64{-3, -1}), test.ShouldEqual, 1)
	test.That(t, Label(Argmax([]float64{-3, -1})), test.ShouldEqual, "2")
	test.That(t, Argmax([]float64{2, 1}), test.ShouldEqual, 0)
}

func TestClassName(t *testing.T) {
	test.That(t, ClassName(0), test.ShouldEqual, "Class 1")
	test.That(t, ClassName(1), test.ShouldEqual, "Class 2")
}

func TestDefaultMetadata(t *testing.T) {
	md := DefaultMetadata()
	test.That(t, md.Validate(), test.ShouldBeNil)
	test.That(t, md.InputSize(), test.ShouldEqual, InputSize)
	test.That(t, md.Classes, test.ShouldResemble, []string{"1", "2"})
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	test.That(t, os.WriteFile(good, []byte(`{
		"input_shape": [1, 8, 8],
		"output_shape": [1, 2],
		"classes": ["one", "two"],
		"image_size": 8
	}`), 0o600), test.ShouldBeNil)
	md, err := LoadMetadata(good)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, md.InputSize(), test.ShouldEqual, InputSize)
	test.That(t, md.Classes, test.ShouldResemble, []string{"one", "two"})

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{
		"input_shape": [1, 3, 48, 48],
		"output_shape": [1, 7],
		"classes": ["a"],
		"image_size": 48
	}`), 0o600), test.ShouldBeNil)
	_, err = LoadMetadata(bad)
	var shapeErr *ShapeError
	test.That(t, errors.As(err, &shapeErr), test.ShouldBeTrue)
	test.That(t, shapeErr.What, test.ShouldEqual, "metadata input_shape")
}
