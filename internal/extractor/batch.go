package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/scene-clarify/internal/llm"
)

// imageExts are the file extensions Glob keeps.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// ProgressFunc is called after each file finishes, successfully or not.
type ProgressFunc func(done, total int, path string)

// FileResult is the outcome of extracting one image.
type FileResult struct {
	Path      string
	SceneJSON string
	Err       error
}

// BatchResult collects per-file results in input order.
type BatchResult struct {
	Files  []FileResult
	Failed int
}

// Glob expands a doublestar pattern (e.g. "photos/**/*.jpg") into image paths,
// sorted for stable output.
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}
	var out []string
	for _, m := range matches {
		if imageExts[strings.ToLower(filepath.Ext(m))] {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadImage reads an image file and sniffs its MIME type.
func LoadImage(path string) (llm.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Image{}, fmt.Errorf("reading %s: %w", path, err)
	}
	mime := llm.SniffMIME(data)
	if !strings.HasPrefix(mime, "image/") {
		return llm.Image{}, fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return llm.Image{MIMEType: mime, Data: data}, nil
}

// ExtractFiles extracts scenes for paths with at most concurrency calls in
// flight. Per-file failures are recorded and do not stop the batch; only
// context cancellation does.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string, concurrency int, onProgress ProgressFunc) (*BatchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	result := &BatchResult{Files: make([]FileResult, len(paths))}
	total := len(paths)
	var done int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fr := FileResult{Path: path}
			img, err := LoadImage(path)
			if err == nil {
				fr.SceneJSON, err = e.Extract(gctx, img)
			}
			fr.Err = err
			result.Files[i] = fr

			if err != nil {
				mu.Lock()
				result.Failed++
				mu.Unlock()
			}
			n := atomic.AddInt64(&done, 1)
			if onProgress != nil {
				onProgress(int(n), total, path)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// SceneFileName is where the scene for an image is written: photo.jpg becomes
// photo.scene.json next to it.
func SceneFileName(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".scene.json"
}
