package output

import "errors"

var (
	// ErrNoInputs — FileMerger запущен без входных файлов.
	ErrNoInputs = errors.New("no input files")

	// ErrNoOutput — FileMerger запущен без выходного файла.
	ErrNoOutput = errors.New("no output file")

	// ErrOutputIsInput — выходной файл совпадает с входным.
	ErrOutputIsInput = errors.New("output file is also an input")
)
