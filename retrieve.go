package gzipi

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/btree"
	"go.uber.org/multierr"
)

// frameGroup collects the index entries that share one frame, so the
// frame's compressed bytes only need to be read and decompressed once.
type frameGroup struct {
	frameStart int64
	frameLen   int64
	entries    []IndexEntry
}

func lessFrameGroup(a, b *frameGroup) bool {
	return a.frameStart < b.frameStart
}

// Retrieve looks up every key in keys against the (not necessarily
// sorted) index at indexPath, and writes each matching record to out, one
// per line, in ascending frame-offset order (SPEC_FULL.md section 4.8).
// It reads keys in batches of cfg.BatchSize, rescanning the whole index
// once per batch.
func Retrieve(ctx context.Context, cfg Config, dataStore Store, dataPath string, indexStore Store, indexPath string, keys [][]byte, out io.Writer) error {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var closeErrs error
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := retrieveBatch(ctx, cfg, dataStore, dataPath, indexStore, indexPath, keys[start:end], out); err != nil {
			return multierr.Append(err, closeErrs)
		}
	}
	return closeErrs
}

func retrieveBatch(ctx context.Context, cfg Config, dataStore Store, dataPath string, indexStore Store, indexPath string, keys [][]byte, out io.Writer) (err error) {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[string(k)] = true
	}
	seen := make(map[string]int, len(keys))

	indexReader, err := indexStore.OpenRead(ctx, indexPath, nil)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, indexReader.Close()) }()

	groups := btree.NewG(8, lessFrameGroup)
	scanner := bufio.NewScanner(indexReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		entry, perr := ParseIndexLine(scanner.Text())
		if perr != nil {
			return perr
		}
		if !wanted[entry.Key] {
			continue
		}
		seen[entry.Key]++
		if seen[entry.Key] > 1 {
			cfg.log().Error().Str("key", entry.Key).Msg("retrieve: duplicate key in batch results")
		}

		probe := &frameGroup{frameStart: entry.FrameStartOff}
		if existing, ok := groups.Get(probe); ok {
			existing.entries = append(existing.entries, entry)
		} else {
			groups.ReplaceOrInsert(&frameGroup{
				frameStart: entry.FrameStartOff,
				frameLen:   entry.FrameLen,
				entries:    []IndexEntry{entry},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return errWrap(ErrIO, err)
	}

	var opErr error
	groups.Ascend(func(g *frameGroup) bool {
		opErr = writeGroup(ctx, dataStore, dataPath, g, out)
		return opErr == nil
	})
	if opErr != nil {
		return opErr
	}

	for key := range wanted {
		if seen[key] == 0 {
			cfg.log().Error().Str("key", key).Msg("retrieve: key not found in index")
		}
	}

	return nil
}

// writeGroup reads one frame's compressed bytes with a single ranged
// read, decompresses it, and writes each entry's record to out.
func writeGroup(ctx context.Context, dataStore Store, dataPath string, g *frameGroup, out io.Writer) error {
	rc, err := dataStore.OpenRead(ctx, dataPath, &ByteRange{Start: g.frameStart, End: g.frameStart + g.frameLen - 1})
	if err != nil {
		return err
	}
	frameBytes, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return errWrap(ErrIO, err)
	}
	if closeErr != nil {
		return errWrap(ErrIO, closeErr)
	}

	kind := Detect(frameBytes)
	decoded, err := DecompressFrame(frameBytes, kind)
	if err != nil {
		return err
	}

	for _, e := range g.entries {
		if e.LineStartOff < 0 || e.LineStartOff+e.LineLen > int64(len(decoded)) {
			return fmt.Errorf("%w: record for key %q falls outside its frame", ErrMalformedIndex, e.Key)
		}
		if _, err := out.Write(decoded[e.LineStartOff : e.LineStartOff+e.LineLen]); err != nil {
			return errWrap(ErrIO, err)
		}
	}
	return nil
}

// Search looks up a single key against the sorted index at indexPath and
// writes the matching record to out (SPEC_FULL.md section 4.8). Unlike
// Retrieve, Search requires the index to already be sorted; on a
// duplicate key it returns whichever entry the binary search happens to
// land on first.
func Search(ctx context.Context, cfg Config, dataStore Store, dataPath string, indexStore Store, indexPath string, key []byte, out io.Writer) error {
	indexSize, err := indexStore.Size(ctx, indexPath)
	if err != nil {
		return err
	}

	ra := &readerAtStore{ctx: ctx, store: indexStore, path: indexPath, size: indexSize}
	entry, err := BinarySearch(ra, indexSize, key, cfg.BufferThresholdKB)
	if err != nil {
		return err
	}

	rc, err := dataStore.OpenRead(ctx, dataPath, &ByteRange{Start: entry.FrameStartOff, End: entry.FrameStartOff + entry.FrameLen - 1})
	if err != nil {
		return err
	}
	frameBytes, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return multierr.Append(errWrap(ErrIO, err), closeErr)
	}
	if closeErr != nil {
		return errWrap(ErrIO, closeErr)
	}

	kind := Detect(frameBytes)
	decoded, err := DecompressFrame(frameBytes, kind)
	if err != nil {
		return err
	}
	if entry.LineStartOff < 0 || entry.LineStartOff+entry.LineLen > int64(len(decoded)) {
		return fmt.Errorf("%w: record for key %q falls outside its frame", ErrMalformedIndex, entry.Key)
	}

	if _, err := out.Write(decoded[entry.LineStartOff : entry.LineStartOff+entry.LineLen]); err != nil {
		return errWrap(ErrIO, err)
	}
	return nil
}
