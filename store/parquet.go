// Package store persists training examples as parquet files.
package store

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"
)

// Schema is written in the key/value metadata of every file.
const Schema = "azplay_example_v1"

// ExampleRow is a single training example.
//
// Board is the encoded state from the perspective of the player to move,
// Policy the search's visit distribution over the action space
// and Value the final outcome for the player to move.
type ExampleRow struct {
	Game       string    `parquet:"game,dict"`
	Generation int32     `parquet:"generation"`
	Index      int32     `parquet:"index"`
	Board      []float32 `parquet:"board"`
	Policy     []float32 `parquet:"policy"`
	Value      float32   `parquet:"value"`
}

// WriteExamples writes rows to outPath. The file is written to a temporary path first and renamed.
func WriteExamples(outPath string, rows []ExampleRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", Schema),
	); err != nil {
		return errors.Wrap(err, "write parquet")
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return errors.Wrap(err, "rename parquet")
	}
	return nil
}

// ReadExamples reads every row of a file written by WriteExamples.
func ReadExamples(path string) ([]ExampleRow, error) {
	rows, err := parquet.ReadFile[ExampleRow](path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", path)
	}
	return rows, nil
}

// ReadDir reads the examples of every .parquet file found under dir, in lexical order of the paths.
func ReadDir(dir string) ([]ExampleRow, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".parquet" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var retVal []ExampleRow
	for _, p := range paths {
		rows, err := ReadExamples(p)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, rows...)
	}
	return retVal, nil
}
