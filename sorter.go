package gzipi

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// SortIndex sorts the index file at path ascending by key in byte-lex
// (LC_ALL=C) order, in place, by shelling out to the system sort(1)
// utility (SPEC_FULL.md section 4.9). If path ends in ".gz" the file is
// piped through gzip decompress -> sort -> gzip compress; otherwise it is
// piped straight through sort. cfg.SortParallelism is the thread count
// sort(1) is told to use; zero means runtime.NumCPU().
//
// On success the sorted result replaces path. On failure the original
// file at path is left untouched and the sort utility's own temp file (if
// any) is not cleaned up; its path, when known, is logged at error level.
func SortIndex(cfg Config, path string) error {
	tmp, err := os.CreateTemp("", "gzipi-sort-*")
	if err != nil {
		return errWrap(ErrIO, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	compressed := strings.HasSuffix(path, ".gz")

	in, err := os.Open(path)
	if err != nil {
		os.Remove(tmpPath)
		return errWrap(ErrIO, err)
	}
	defer in.Close()

	out, err := os.Create(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return errWrap(ErrIO, err)
	}

	sortErr := runSortPipeline(cfg, in, out, compressed)
	closeErr := out.Close()
	if sortErr != nil {
		cfg.log().Error().Str("tmp_path", tmpPath).Err(sortErr).Msg("external sort failed, temp file left in place")
		return sortErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return errWrap(ErrIO, closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errWrap(ErrIO, err)
	}
	return nil
}

// runSortPipeline wires in -> [gunzip ->] sort [-> gzip] -> out.
func runSortPipeline(cfg Config, in *os.File, out *os.File, compressed bool) error {
	parallelism := cfg.SortParallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	sortCmd := exec.Command("sort",
		"-t", string(indexSeparator),
		"-k", "1,1",
		"--parallel", strconv.Itoa(parallelism),
		"--buffer-size", "1G",
	)
	sortCmd.Env = append(os.Environ(), "LC_ALL=C")
	sortCmd.Stderr = os.Stderr

	if !compressed {
		sortCmd.Stdin = in
		sortCmd.Stdout = out
		if err := sortCmd.Run(); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
		return nil
	}

	gunzip := exec.Command("gzip", "-dc")
	gunzip.Stdin = in
	gunzip.Stderr = os.Stderr
	gzipOut, err := gunzip.StdoutPipe()
	if err != nil {
		return errWrap(ErrIO, err)
	}
	sortCmd.Stdin = gzipOut

	gzipCmd := exec.Command("gzip", "-c")
	gzipCmd.Stderr = os.Stderr
	sortOut, err := sortCmd.StdoutPipe()
	if err != nil {
		return errWrap(ErrIO, err)
	}
	gzipCmd.Stdin = sortOut
	gzipCmd.Stdout = out

	if err := gunzip.Start(); err != nil {
		return fmt.Errorf("gzip -dc: %w", err)
	}
	if err := sortCmd.Start(); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	if err := gzipCmd.Start(); err != nil {
		return fmt.Errorf("gzip -c: %w", err)
	}

	if err := gunzip.Wait(); err != nil {
		return fmt.Errorf("gzip -dc: %w", err)
	}
	if err := sortCmd.Wait(); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	if err := gzipCmd.Wait(); err != nil {
		return fmt.Errorf("gzip -c: %w", err)
	}
	return nil
}
