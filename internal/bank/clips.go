package bank

import (
	"context"
	"fmt"
	"io/fs"
	"runtime"
	"sync"

	"github.com/cbegin/vpsaudio-go/internal/decode"
	"golang.org/x/sync/errgroup"
)

// LoadClips reads and decodes every file in parallel, resampled to
// sampleRate. The first failure cancels the remaining work.
func LoadClips(ctx context.Context, fsys fs.FS, files []string, sampleRate int) (map[string]*decode.Clip, error) {
	var (
		mu    sync.Mutex
		clips = make(map[string]*decode.Clip, len(files))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			clip, err := decode.Decode(name, data, sampleRate)
			if err != nil {
				return err
			}
			mu.Lock()
			clips[name] = clip
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}
