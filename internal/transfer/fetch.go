package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/desertthunder/playcache/internal/cache"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 8 * 1024

// StatusError is returned for non-2xx transfer responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// chunkFunc observes the cumulative byte count after each chunk. Returning an error aborts.
type chunkFunc func(received, total int64) error

// fetchFile streams url into dir/name through a hidden temp file and commits it with a rename.
//
// total is the response Content-Length, or 0 when unknown. The temp file is removed on every
// failure path, including cancellation.
func fetchFile(ctx context.Context, client *http.Client, url, dir, name string, chunkSize int, onChunk chunkFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &StatusError{Code: resp.StatusCode}
	}

	total := max(resp.ContentLength, 0)

	tmp, err := cache.CreateTemp(dir, name)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	received, err := copyChunks(ctx, tmp, resp.Body, chunkSize, func(n int64) error {
		return onChunk(n, total)
	})
	if err != nil {
		return received, err
	}

	if err := tmp.Close(); err != nil {
		return received, fmt.Errorf("close temp file: %w", err)
	}
	if err := cache.Commit(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return received, err
	}
	committed = true
	return received, nil
}

// copyChunks copies src to dst in chunkSize reads, calling onChunk with the running total.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int, onChunk func(int64) error) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
			if err := onChunk(total); err != nil {
				return total, err
			}
		}

		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			return total, rerr
		}
	}
}
